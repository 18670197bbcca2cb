// Package sandbox hosts compiled modules in an isolated wasmer runtime.
//
// The bridge consumes the sandbox through the narrow Instance and Memory
// interfaces: an instance exposes its exported linear memory and exported
// functions, nothing else. Production instances are backed by wasmer;
// tests substitute an in-memory fake.
package sandbox
