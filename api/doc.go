// Package api provides the HTTP REST API for Blockfall.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "practice"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several fields at once (?sessionIds=a,b or ?configName=classic)
//   - GET /api/sessions/{id} - Session details with current snapshot
//   - DELETE /api/sessions/{id} - Stop and remove a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current snapshot (?format=text for the board)
//   - POST /api/sessions/{id}/tick - Gravity step
//   - POST /api/sessions/{id}/move - {"direction": "left"} or {"d_row": 1, "d_col": 0}
//   - POST /api/sessions/{id}/rotate - Clockwise rotation
//   - POST /api/sessions/{id}/actions - {"actions": ["left", "rotate", "tick"]}, at most 50
//   - POST /api/sessions/{id}/reset - Fresh field, history kept
//   - GET /api/sessions/{id}/history - Paginated action log (?page&limit&order)
//
// Configuration:
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - One configuration
//   - POST /api/configs - Save a configuration (?id=name.yaml to pick the file)
//
// Other:
//   - GET /api/health - Liveness
//   - /ws?session={id} - WebSocket stream of state updates
//
// Every game operation body accepts "reset": true to reset before acting.
//
// Error Handling:
//
// Errors are returned as JSON, {"error": "message"}. Unknown sessions and
// configs map to 404, unknown actions and invalid configs to 400.
package api
