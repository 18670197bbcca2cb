// Package middleware provides gin middleware for the runtime's HTTP
// surface: CORS for the view layer's dev server and per-IP rate limiting.
package middleware
