// Package api provides the HTTP REST API and WebSocket server for
// Parkgate Core.
//
// It exposes card and slot management, entry/exit history, reporting,
// pricing settings, and gate controller commands to the admin dashboard,
// plus a ticket-authenticated WebSocket feed of live gate events.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
