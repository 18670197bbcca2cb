/*
Package resilience provides a circuit breaker for call targets that can
degrade, such as functions exported by a loaded module.

# States

	Closed --[consecutive failures]-> Open --[timeout]-> Half-Open --[probe successes]-> Closed

In the open state calls fail immediately with ErrCircuitOpen instead of
burning a timeout each. Half-open admits a bounded number of probes; one
probe failure reopens the circuit.

# Usage

	breaker := resilience.New("sandbox", resilience.Settings{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	})
	result, err := breaker.Execute(func() (any, error) {
		return inst.Call(name, args...)
	})
*/
package resilience
