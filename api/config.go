// Package api provides an HTTP API server for feeding conversation turns into
// the extraction pipeline and inspecting what it produced.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
