package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
	"github.com/wricardo/mcp-training/blockfall/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Blockfall",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Blockfall - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME:
A falling-block puzzle. One piece falls at a time; full rows clear.
The game ends when a new piece does not fit at the spawn position.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage independent fields
- game_state: current field with the active piece drawn as @
- tick: gravity step (drops one row, or locks and spawns)
- move: left/right/down, or an arbitrary d_row/d_col offset
- rotate: rotate the active piece clockwise
- bulk_actions: up to 50 actions applied atomically
- reset_game: fresh field with the same configuration
- action_history: past actions, paginated
- describe_cell: what occupies one cell
- list_configs: available configurations
- game_instructions: full rules

NOTE: The 'intent' parameter on move/bulk_actions serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func resetProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Reset the field before acting",
	}
}

func intentProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config identifier from list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current field, active piece and status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance gravity one step: the piece drops a row, or locks and the next piece spawns",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"reset":      resetProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the active piece by direction, or by an arbitrary row/col offset. Blocked moves leave the field unchanged.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"left", "right", "down"},
					"description": "Direction to move",
				},
				"d_row": map[string]interface{}{
					"type":        "integer",
					"description": "Row offset, used when direction is omitted. Only the destination is checked, so large offsets can pass settled cells",
				},
				"d_col": map[string]interface{}{
					"type":        "integer",
					"description": "Column offset, used when direction is omitted",
				},
				"intent": intentProperty(),
				"reset":  resetProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate",
		Description: "Rotate the active piece 90 degrees clockwise. Blocked rotations leave the field unchanged.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"reset":      resetProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_actions",
		Description: fmt.Sprintf("Execute up to %d actions in sequence; no gravity tick interleaves. Stops at game over.", engine.MaxBulkActions),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"actions": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"left", "right", "down", "rotate", "tick"},
					},
					"description": "Array of actions",
				},
				"intent": intentProperty(),
				"reset":  resetProperty(),
			},
			Required: []string{"session_id", "actions"},
		},
	}, c.handleBulkActions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to a fresh field",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get the action history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page (max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell of the field: empty, settled, or part of the active piece. Row 0 is the top.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based, top to bottom)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based, left to right)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configID := cast.ToString(args["config_id"])

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatSnapshot(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "running"
		if s.GameState != nil && s.GameState.GameOver {
			status = "game over"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, %s, Created: %s)\n",
			s.ID, s.ConfigName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&state)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.postAction(ctx, request, "/tick", nil)
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.postAction(ctx, request, "/rotate", nil)
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	// Intent serves as rubber duck debugging; nothing to do with it here
	body := map[string]interface{}{}
	if direction := cast.ToString(args["direction"]); direction != "" {
		body["direction"] = direction
	} else {
		_, hasRow := args["d_row"]
		_, hasCol := args["d_col"]
		if !hasRow && !hasCol {
			return mcp.NewToolResultError("direction or d_row/d_col is required"), nil
		}
		body["d_row"] = cast.ToInt(args["d_row"])
		body["d_col"] = cast.ToInt(args["d_col"])
	}

	return c.postAction(ctx, request, "/move", body)
}

// postAction posts a single action and formats the result. body may be nil.
func (c *Client) postAction(ctx context.Context, request mcp.CallToolRequest, suffix string, body map[string]interface{}) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	if body == nil {
		body = map[string]interface{}{}
	}
	if cast.ToBool(args["reset"]) {
		body["reset"] = true
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleBulkActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	actions := cast.ToStringSlice(args["actions"])
	if len(actions) == 0 {
		return mcp.NewToolResultError("actions must not be empty"), nil
	}

	body := map[string]interface{}{
		"actions": actions,
		"reset":   cast.ToBool(args["reset"]),
	}

	var result service.BulkActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/actions"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkActionResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	params := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := cast.ToString(args["order"]); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		drop := fmt.Sprintf("auto-drop every %dms", config.DropIntervalMS)
		if config.DropIntervalMS == 0 {
			drop = "manual ticks"
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Field: %d rows x %d cols, %s\n\n",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, drop)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Blockfall - Complete Instructions

GAME OBJECTIVE:
Keep the field from filling up. Pieces fall one at a time; complete rows
disappear and everything above drops down.

FIELD:
• Row 0 is the top, column 0 is the left edge
• . - empty cell
• # - settled block
• @ - the active (falling) piece
• Pieces: I, O, T, S, Z, J, L
• A new piece spawns at row 0, column cols/2-1

ACTIONS:
• left / right - shift one column
• down - drop one row (no lock if blocked)
• rotate - 90 degrees clockwise, no wall kicks
• tick - gravity: drop one row, or lock the piece if it cannot drop
• move with d_row/d_col - any offset, all-or-nothing

RULES:
• Any action that would collide with a wall, the floor or a settled block is
  rejected and the field is unchanged
• Only tick locks a piece; "down" against the floor is simply rejected
• After a lock, full rows clear and the next piece spawns
• GAME OVER when the new piece does not fit at its spawn position
• After game over every action is ignored until reset_game

AUTO-DROP:
Some configurations tick on their own (drop_interval_ms). Use bulk_actions to
apply a whole plan without a timer tick in between. Configurations with
drop_interval_ms = 0 only move when you tick.

STRATEGY TIPS:
• Check column heights in game_state before placing a piece
• Rotate near the top where there is room; rotations against walls fail
• Keep the surface flat; leave one column open for an I piece
• Use describe_cell to confirm what occupies a cell before a tight move

SESSION MANAGEMENT:
• Multiple sessions run independently, each with a 4-character ID
• Each session has its own field, timer and history
• History survives reset_game

Good luck stacking!`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])
	row := cast.ToInt(args["row"])
	col := cast.ToInt(args["col"])

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if row < 0 || row >= state.Rows || col < 0 || col >= state.Cols {
		return mcp.NewToolResultError(fmt.Sprintf("Cell (%d, %d) is out of bounds. Field is %d rows x %d cols (row 0-%d, col 0-%d)",
			row, col, state.Rows, state.Cols, state.Rows-1, state.Cols-1)), nil
	}

	return mcp.NewToolResultText(describeCell(&state, row, col)), nil
}

// describeCell reports what occupies (row, col) in the snapshot
func describeCell(state *engine.Snapshot, row, col int) string {
	char := "."
	kind := "Empty"
	description := "Free cell; a piece can move here"

	for _, p := range state.ActiveCells() {
		if p.Row == row && p.Col == col {
			char, kind = "@", "Active piece"
			description = fmt.Sprintf("Part of the falling %s piece", state.Active.Name)
		}
	}
	if char == "." && state.Grid[row][col] != engine.Empty {
		char, kind = "#", "Settled"
		description = "Locked block; blocks movement until its row clears"
	}

	heights := engine.ColumnHeights(state.Grid)
	return fmt.Sprintf("Cell (%d, %d):\nCharacter: %s\nType: %s\nDescription: %s\nColumn %d height: %d\n",
		row, col, char, kind, description, col, heights[col])
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	drop := "manual ticks"
	if session.DropIntervalMS > 0 {
		drop = fmt.Sprintf("auto-drop %dms", session.DropIntervalMS)
	}
	return fmt.Sprintf("Session: %s\nConfig: %s (%s)\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, drop,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.GameState))
}

func formatSnapshot(state *engine.Snapshot) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Piece: %s at (%d,%d) | Pieces: %d | Ticks: %d | Actions: %d\n\n",
		state.Active.Name, state.Active.Position.Row, state.Active.Position.Col,
		state.PiecesSpawned, state.Ticks, state.TotalActions)

	board := state.Board
	if board == nil {
		board = engine.RenderBoard(state.Grid, state.Active)
	}

	// Column ruler, units digit only
	b.WriteString("    ")
	for col := 0; col < state.Cols; col++ {
		b.WriteString(fmt.Sprint(col % 10))
	}
	b.WriteString("\n")
	for row, line := range board {
		fmt.Fprintf(&b, "%3d %s\n", row, line)
	}

	if state.Grid != nil {
		heights := engine.ColumnHeights(state.Grid)
		parts := make([]string, len(heights))
		for i, h := range heights {
			parts[i] = fmt.Sprint(h)
		}
		fmt.Fprintf(&b, "\nColumn heights: %s\n", strings.Join(parts, " "))
	}

	if state.GameOver {
		b.WriteString("\nGAME OVER")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func outcomeMark(outcome engine.Outcome) string {
	switch outcome {
	case engine.OutcomeMoved:
		return "✓"
	case engine.OutcomeLocked:
		return "▣"
	case engine.OutcomeGameOver:
		return "☠"
	case engine.OutcomeReset:
		return "↺"
	}
	return "✗"
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder

	switch result.Outcome {
	case engine.OutcomeRejected:
		fmt.Fprintf(&b, "✗ %s rejected (blocked)\n", result.Action)
	case engine.OutcomeIgnored:
		fmt.Fprintf(&b, "✗ %s ignored (game over, reset to continue)\n", result.Action)
	default:
		fmt.Fprintf(&b, "%s %s: %s\n", outcomeMark(result.Outcome), result.Action, result.Outcome)
	}

	if e := result.Entry; e != nil {
		fmt.Fprintf(&b, "Step: %s (%d,%d)→(%d,%d)\n",
			e.Piece, e.FromPosition.Row, e.FromPosition.Col, e.ToPosition.Row, e.ToPosition.Col)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n" + formatSnapshot(result.GameState))
	return b.String()
}

func formatBulkActionResult(sessionID string, result *service.BulkActionResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s\n", sessionID, configName)

	fmt.Fprintf(&b, "Executed %d/%d actions (rejected: %d, pieces locked: %d)\n",
		result.ActionsExecuted, result.RequestedActions, result.Rejected, result.PiecesLocked)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d actions\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for _, s := range result.Steps {
			line := fmt.Sprintf("%d. %s %s (%d,%d)→(%d,%d) %s",
				s.Idx, s.Action, s.Piece, s.From.Row, s.From.Col, s.To.Row, s.To.Col, outcomeMark(s.Outcome))
			if s.Spawned != "" {
				line += fmt.Sprintf(" next=%s", s.Spawned)
			}
			b.WriteString(line + "\n")
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			if event.Type == service.EventMoved {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action History (Page %d/%d) | Total (cumulative): %d, retained: %d\n\n",
		history.Page, history.TotalPages, history.TotalActions, history.Retained)

	for _, entry := range history.Actions {
		line := fmt.Sprintf("%d. %s %s %s (%d,%d)→(%d,%d)",
			entry.ActionNumber, entry.Action, entry.Piece, outcomeMark(entry.Outcome),
			entry.FromPosition.Row, entry.FromPosition.Col,
			entry.ToPosition.Row, entry.ToPosition.Col)
		if entry.Spawned != "" {
			line += fmt.Sprintf(" next=%s", entry.Spawned)
		}
		b.WriteString(line + "\n")
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore: page=%d\n", history.Page+1)
	}

	return b.String()
}
