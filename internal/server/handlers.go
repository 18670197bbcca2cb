package server

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/sproutlabs/sprout/runtime/internal/bridge"
	"github.com/sproutlabs/sprout/runtime/internal/domain/reactive"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  "sprout-runtime",
		"instance": s.instance.ID(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.instance.Stats()
	status := http.StatusOK
	if stats.Disposed {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   "ok",
		"disposed": stats.Disposed,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.instance.Stats())
}

func (s *Server) handleSnapshot(c *gin.Context) {
	data, err := sonic.Marshal(s.instance.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": s.instance.Events()})
}

func (s *Server) handleGetValue(c *gin.Context) {
	key := c.Param("key")
	value, ok := s.instance.Lookup(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown key", "key": key})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":          key,
		"value":        value.Data,
		"last_updated": value.LastUpdated,
	})
}

type setValueRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleSetValue(c *gin.Context) {
	key := c.Param("key")
	var req setValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	if err := s.instance.SetValue(key, req.Value); err != nil {
		c.JSON(statusForStoreError(err), gin.H{"error": err.Error(), "key": key})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

type transactionRequest struct {
	Values map[string]any `json:"values"`
}

func (s *Server) handleTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	err := s.instance.Transaction(func() error {
		for key, value := range req.Values {
			if err := s.instance.SetValue(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(statusForStoreError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": len(req.Values)})
}

type computedRequest struct {
	Key          string   `json:"key"`
	Expression   string   `json:"expression"`
	Dependencies []string `json:"dependencies"`
}

func (s *Server) handleComputed(c *gin.Context) {
	var req computedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" || req.Expression == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	if err := s.instance.ComputedExpr(req.Key, req.Expression, req.Dependencies); err != nil {
		c.JSON(statusForStoreError(err), gin.H{"error": err.Error(), "key": req.Key})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": req.Key})
}

type loadRequest struct {
	Module string           `json:"module"` // base64-encoded compiled module
	Layout []bridge.Binding `json:"layout"`
	State  map[string]any   `json:"state"`
}

func (s *Server) handleLoad(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	bytecode, err := base64.StdEncoding.DecodeString(req.Module)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "module is not valid base64"})
		return
	}
	if err := bridge.NormalizeLayout(req.Layout); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.instance.Load(bytecode, req.Layout, req.State); err != nil {
		c.JSON(statusForBridgeError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bindings": len(req.Layout)})
}

type callRequest struct {
	Args []any `json:"args"`
}

func (s *Server) handleCall(c *gin.Context) {
	name := c.Param("name")
	var req callRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
			return
		}
	}
	result, err := s.instance.CallFunction(name, req.Args...)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "function": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"function": name, "result": result})
}

func (s *Server) handleSync(c *gin.Context) {
	s.instance.Sync()
	c.JSON(http.StatusOK, gin.H{"synced": true})
}

func (s *Server) handleFlush(c *gin.Context) {
	s.instance.Flush()
	c.JSON(http.StatusOK, gin.H{"flushed": true})
}

// statusForStoreError maps store contract violations to 4xx and teardown
// races to 409.
func statusForStoreError(err error) int {
	switch {
	case errors.Is(err, reactive.ErrTypeMismatch),
		errors.Is(err, reactive.ErrDependencyCycle):
		return http.StatusBadRequest
	case errors.Is(err, reactive.ErrDisposed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func statusForBridgeError(err error) int {
	var bindingErr *bridge.BindingError
	switch {
	case errors.As(err, &bindingErr):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrAlreadyLoaded),
		errors.Is(err, bridge.ErrFailed),
		errors.Is(err, bridge.ErrDisposed):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
