// Package service provides the business logic layer for Blockfall.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Action parsing, execution and event reporting
//   - Action history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Every session owns a driver that runs its engine on a
// single goroutine together with the drop timer; the service only submits
// work to that driver and never touches engine state directly.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Act(ctx, sessionInfo.ID, "left", false)
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and hold independent
// fields. Multiple sessions run concurrently with different configurations.
package service
