// Package mcp exposes Blockfall to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, and the JSON response is formatted as text for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: field, active piece and column heights
//   - tick, move, rotate: single actions ("move" also takes d_row/d_col)
//   - bulk_actions: up to 50 actions in one uninterrupted turn
//   - reset_game: fresh field, history kept
//   - action_history: paginated action log
//   - describe_cell: what occupies one cell
//   - list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp on the main server forwards to HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
