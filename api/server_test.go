package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/mcp-training/blockfall/game/config"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
	"github.com/wricardo/mcp-training/blockfall/game/service"
	"github.com/wricardo/mcp-training/blockfall/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	ActFunc     func(ctx context.Context, sessionID, action string, reset bool) (*service.ActionResult, error)
	MoveFunc    func(ctx context.Context, sessionID string, dRow, dCol int) (*service.ActionResult, error)
	BulkActFunc func(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkActionResult, error)
	ResetFunc   func(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Game State
	GetGameStateFunc     func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetActionHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func testSnapshot() *engine.Snapshot {
	snap := engine.NewEngineWithDefaults().Snapshot()
	return &snap
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

// Game Operations
func (m *MockGameService) Act(ctx context.Context, sessionID, action string, reset bool) (*service.ActionResult, error) {
	if m.ActFunc != nil {
		return m.ActFunc(ctx, sessionID, action, reset)
	}
	return &service.ActionResult{
		Success:   true,
		Action:    engine.Action(action),
		Outcome:   engine.OutcomeMoved,
		GameState: testSnapshot(),
	}, nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID string, dRow, dCol int) (*service.ActionResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, dRow, dCol)
	}
	return &service.ActionResult{
		Success:   true,
		Action:    engine.ActionMove,
		Outcome:   engine.OutcomeMoved,
		GameState: testSnapshot(),
	}, nil
}

func (m *MockGameService) BulkAct(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkActionResult, error) {
	if m.BulkActFunc != nil {
		return m.BulkActFunc(ctx, sessionID, actions, reset)
	}
	return &service.BulkActionResult{
		RequestedActions: len(actions),
		ActionsExecuted:  len(actions),
		Success:          true,
		GameState:        testSnapshot(),
	}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return testSnapshot(), nil
}

// Game State
func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return testSnapshot(), nil
}

func (m *MockGameService) GetActionHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetActionHistoryFunc != nil {
		return m.GetActionHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Actions:    []engine.ActionEntry{},
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	config := engine.DefaultConfig()
	config.Name = configName
	return config, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

// Test helpers
func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, websocket.NewHub())
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (body %q)", err, w.Body.String())
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	parseResponse(t, w, &resp)
	return resp["error"]
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "practice"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "practice" {
						t.Errorf("Expected config 'practice', got %s", configName)
					}
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Deprecated config_name still works",
			requestBody: map[string]string{"config_name": "narrow"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "narrow" {
						t.Errorf("Expected config 'narrow', got %s", configName)
					}
					return &service.SessionInfo{ID: "ef56", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "missing"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: 'missing'", service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			var req *http.Request
			if tt.requestBody == nil {
				req = httptest.NewRequest("POST", "/api/sessions", nil)
			} else {
				req = makeRequest("POST", "/api/sessions", tt.requestBody)
			}

			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
			{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-time.Hour)},
			{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now},
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"default sorts by accessed desc", "", []string{"mid", "old", "new"}},
		{"created asc", "?sort=created&order=asc", []string{"old", "mid", "new"}},
		{"limit", "?sort=created&limit=1", []string{"new"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}
			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 || resp.Count != len(tt.expected) {
				t.Errorf("Expected count %d total 3, got %d/%d", len(tt.expected), resp.Count, resp.Total)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, service.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: sessionID, ConfigName: "classic", GameState: testSnapshot()}, nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.ID != "ab12" || resp.GameState == nil || resp.GameState.Rows != engine.DefaultRows {
		t.Errorf("Unexpected session: %+v", resp)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if msg := errorMessage(t, w); msg != "session not found" {
		t.Errorf("Expected 'session not found', got %q", msg)
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	mockService := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return service.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/sessions/ab12", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if deleted != "ab12" {
		t.Errorf("Expected ab12 to be deleted, got %q", deleted)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Game Operation Tests

func TestGetGameState(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/ab12/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var snap engine.Snapshot
	parseResponse(t, w, &snap)
	if len(snap.Board) != engine.DefaultRows || snap.Status != engine.StatusRunning {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/ab12/state?format=text", nil))
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "@") {
		t.Errorf("Expected rendered board with the active piece, got %q", w.Body.String())
	}
}

func TestSingleActions(t *testing.T) {
	for _, action := range []string{"tick", "rotate"} {
		t.Run(action, func(t *testing.T) {
			var got string
			var gotReset bool
			mockService := &MockGameService{
				ActFunc: func(ctx context.Context, sessionID, a string, reset bool) (*service.ActionResult, error) {
					got, gotReset = a, reset
					return &service.ActionResult{Success: true, Action: engine.Action(a), Outcome: engine.OutcomeMoved, GameState: testSnapshot()}, nil
				},
			}
			server := setupTestServer(mockService)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions/ab12/"+action, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if got != action || gotReset {
				t.Errorf("Expected %s without reset, got %s reset=%v", action, got, gotReset)
			}

			w = httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/"+action, map[string]bool{"reset": true}))
			if !gotReset {
				t.Error("Expected reset to be forwarded")
			}
		})
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Named direction",
			requestBody: map[string]interface{}{"direction": "left"},
			setupMock: func(m *MockGameService) {
				m.ActFunc = func(ctx context.Context, sessionID, action string, reset bool) (*service.ActionResult, error) {
					if action != "left" {
						t.Errorf("Expected action 'left', got %s", action)
					}
					snap := testSnapshot()
					snap.Active.Position.Col--
					return &service.ActionResult{Success: true, Action: engine.ActionLeft, Outcome: engine.OutcomeMoved, GameState: snap}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.ActionResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.Outcome != engine.OutcomeMoved {
					t.Errorf("Unexpected result: %+v", resp)
				}
				if resp.GameState.Active.Position.Col != engine.SpawnPosition(engine.DefaultCols).Col-1 {
					t.Errorf("Expected piece shifted left, got %+v", resp.GameState.Active.Position)
				}
			},
		},
		{
			name:        "Arbitrary offset",
			requestBody: map[string]interface{}{"d_row": 3, "d_col": -2},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID string, dRow, dCol int) (*service.ActionResult, error) {
					if dRow != 3 || dCol != -2 {
						t.Errorf("Expected (3,-2), got (%d,%d)", dRow, dCol)
					}
					return &service.ActionResult{Action: engine.ActionMove, Outcome: engine.OutcomeRejected, GameState: testSnapshot()}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.ActionResult
				parseResponse(t, w, &resp)
				if resp.Success || resp.Outcome != engine.OutcomeRejected {
					t.Errorf("Expected rejected move, got %+v", resp)
				}
			},
		},
		{
			name:        "Offset with reset",
			requestBody: map[string]interface{}{"d_col": 1, "reset": true},
			setupMock: func(m *MockGameService) {
				resetCalled := false
				m.ResetFunc = func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
					resetCalled = true
					return testSnapshot(), nil
				}
				m.MoveFunc = func(ctx context.Context, sessionID string, dRow, dCol int) (*service.ActionResult, error) {
					if !resetCalled {
						t.Error("Expected reset before move")
					}
					if dRow != 0 || dCol != 1 {
						t.Errorf("Expected (0,1), got (%d,%d)", dRow, dCol)
					}
					return &service.ActionResult{Success: true, Outcome: engine.OutcomeMoved, GameState: testSnapshot()}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing direction and offset",
			requestBody:    map[string]interface{}{"invalid": "field"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Unknown direction",
			requestBody: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.ActFunc = func(ctx context.Context, sessionID, action string, reset bool) (*service.ActionResult, error) {
					_, err := engine.ParseAction(action)
					return nil, err
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Session not found",
			requestBody: map[string]interface{}{"direction": "down"},
			setupMock: func(m *MockGameService) {
				m.ActFunc = func(ctx context.Context, sessionID, action string, reset bool) (*service.ActionResult, error) {
					return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := makeRequest("POST", "/api/sessions/ab12/move", tt.requestBody)
			req = mux.SetURLVars(req, map[string]string{"id": "ab12"})

			server.handleMove(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestActions(t *testing.T) {
	t.Run("bulk", func(t *testing.T) {
		mockService := &MockGameService{
			BulkActFunc: func(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkActionResult, error) {
				if len(actions) != 3 || actions[2] != "down" || !reset {
					t.Errorf("Unexpected bulk request: %v reset=%v", actions, reset)
				}
				return &service.BulkActionResult{
					RequestedActions: 3,
					ActionsExecuted:  2,
					StopReasonCode:   "game_over",
					StoppedOnAction:  3,
					GameOver:         true,
					GameState:        testSnapshot(),
				}, nil
			},
		}
		server := setupTestServer(mockService)

		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/actions", map[string]interface{}{
			"actions": []string{"left", "rotate", "down"},
			"reset":   true,
		}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp service.BulkActionResult
		parseResponse(t, w, &resp)
		if resp.ActionsExecuted != 2 || resp.StoppedOnAction != 3 || !resp.GameOver {
			t.Errorf("Unexpected bulk result: %+v", resp)
		}
	})

	t.Run("empty", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/actions", map[string]interface{}{"actions": []string{}}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid action", func(t *testing.T) {
		mockService := &MockGameService{
			BulkActFunc: func(ctx context.Context, sessionID string, actions []string, reset bool) (*service.BulkActionResult, error) {
				return nil, fmt.Errorf("action 2: %w", engine.ErrUnknownAction)
			},
		}
		server := setupTestServer(mockService)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/actions", map[string]interface{}{"actions": []string{"left", "jump"}}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/sessions/ab12/actions", strings.NewReader("{"))
		server.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			if sessionID == "missing" {
				return nil, service.ErrSessionNotFound
			}
			return testSnapshot(), nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.GameOver {
		t.Errorf("Expected a running state after reset, got %+v", resp.State)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions/missing/reset", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"custom", "?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"invalid values ignored", "?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetActionHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{
						Actions:      []engine.ActionEntry{{Action: engine.ActionTick, Outcome: engine.OutcomeMoved, ActionNumber: 1}},
						TotalActions: 1,
						Retained:     1,
						Page:         opts.Page,
						PageSize:     opts.Limit,
						TotalPages:   1,
					}, nil
				},
			}
			server := setupTestServer(mockService)

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected options %+v, got %+v", tt.expected, got)
			}

			var resp service.HistoryResponse
			parseResponse(t, w, &resp)
			if len(resp.Actions) != 1 || resp.Actions[0].Action != engine.ActionTick {
				t.Errorf("Unexpected history: %+v", resp)
			}
		})
	}
}

// Configuration Tests

func TestListConfigs(t *testing.T) {
	mockService := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{
				{ConfigID: "classic", Name: "Classic", Rows: 20, Cols: 10, DropIntervalMS: 500},
				{ConfigID: "practice", Name: "Practice", Rows: 16, Cols: 8},
			}, nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/configs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var configs []service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 2 || configs[1].ConfigID != "practice" {
		t.Errorf("Unexpected configs: %+v", configs)
	}

	// Nil list still encodes as an array
	server = setupTestServer(&MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) { return nil, nil },
	})
	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/configs", nil))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected [], got %s", w.Body.String())
	}
}

func TestGetConfig(t *testing.T) {
	mockService := &MockGameService{
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName != "practice.yaml" && configName != "practice" {
				return nil, service.ErrConfigNotFound
			}
			config := engine.DefaultConfig()
			config.Name = "Practice"
			config.DropIntervalMS = 0
			return config, nil
		},
	}
	server := setupTestServer(mockService)

	for _, path := range []string{"/api/configs/practice", "/api/configs/practice.yaml"} {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}
		var config engine.GameConfig
		parseResponse(t, w, &config)
		if config.Name != "Practice" || config.DropIntervalMS != 0 {
			t.Errorf("%s: unexpected config %+v", path, config)
		}
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/configs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateConfig(t *testing.T) {
	var savedID string
	var saved *engine.GameConfig
	mockService := &MockGameService{
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
			if err := engine.ValidateGameConfig(cfg); err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			savedID, saved = configName, cfg
			return nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("defaults applied and id derived from name", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "Big Field", "rows": 30}))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if savedID != "big_field" || saved.Cols != engine.DefaultCols || saved.Rows != 30 {
			t.Errorf("Unexpected saved config %s: %+v", savedID, saved)
		}
	})

	t.Run("explicit id", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs?id=tiny.yaml", map[string]interface{}{"name": "Tiny", "rows": 6, "cols": 6}))
		if w.Code != http.StatusCreated || savedID != "tiny.yaml" {
			t.Errorf("Expected tiny.yaml saved, got %d %s", w.Code, savedID)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"rows": 10}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "bad", "rows": 2}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

// Unified Sessions Tests

func TestUnifiedSessions(t *testing.T) {
	now := time.Now()
	over := testSnapshot()
	over.GameOver = true
	all := []*service.SessionInfo{
		{ID: "b", ConfigName: "classic", CreatedAt: now, GameState: over},
		{ID: "a", ConfigName: "classic", CreatedAt: now.Add(-time.Minute), GameState: testSnapshot()},
		{ID: "c", ConfigName: "narrow", CreatedAt: now.Add(time.Minute), GameState: testSnapshot()},
	}
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return all, nil
		},
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			for _, s := range all {
				if s.ID == sessionID {
					return s, nil
				}
			}
			return nil, service.ErrSessionNotFound
		},
	}
	server := setupTestServer(mockService)

	type unified struct {
		Count    int `json:"count"`
		Running  int `json:"running"`
		Sessions []struct {
			SessionID string `json:"session_id"`
			GameOver  bool   `json:"game_over"`
		} `json:"sessions"`
	}

	tests := []struct {
		query   string
		ids     []string
		running int
	}{
		{"", []string{"a", "b", "c"}, 2},
		{"?configName=classic", []string{"a", "b"}, 1},
		{"?sessionIds=c,%20missing,a", []string{"a", "c"}, 2},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/unified"+tt.query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected status 200, got %d", tt.query, w.Code)
		}
		var resp unified
		parseResponse(t, w, &resp)
		if resp.Count != len(tt.ids) || resp.Running != tt.running {
			t.Errorf("%q: expected %d sessions (%d running), got %d (%d)", tt.query, len(tt.ids), tt.running, resp.Count, resp.Running)
			continue
		}
		for i, id := range tt.ids {
			if resp.Sessions[i].SessionID != id {
				t.Errorf("%q: position %d expected %s, got %s", tt.query, i, id, resp.Sessions[i].SessionID)
			}
		}
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", resp["status"])
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrConfigNotFound, http.StatusNotFound},
		{fmt.Errorf("action 1: %w", engine.ErrUnknownAction), http.StatusBadRequest},
		{config.ErrInvalidConfig, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Valid session",
			queryParams:    "?sessionId=ab12",
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.handleWebSocket(w, req)

			// httptest.ResponseRecorder is not an http.Hijacker, so the
			// upgrade itself fails with 500 after the session check passes.
			if tt.expectedStatus == http.StatusSwitchingProtocols && w.Code == http.StatusInternalServerError {
				return
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
