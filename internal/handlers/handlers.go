// Package handlers implements the HTTP API layer. Handlers delegate to
// the services layer and focus on request validation, error-to-status
// mapping, and model-to-API conversion.
//
// Endpoints:
//
//	┌────────┬─────────────────────────┬──────────────────────────────────┐
//	│ Method │ Endpoint                │ Description                      │
//	├────────┼─────────────────────────┼──────────────────────────────────┤
//	│ GET    │ /sessions               │ List sessions with health state  │
//	│ POST   │ /sessions               │ Register an endpoint             │
//	│ POST   │ /sessions/:id/connect   │ Authenticate a session           │
//	│ POST   │ /sessions/:id/disconnect│ Tear a session down              │
//	│ DELETE │ /sessions/:id           │ Remove endpoint and credential   │
//	│ GET    │ /inventory              │ Inventory freshness and errors   │
//	│ POST   │ /inventory/refresh      │ Rebuild the annotated inventory  │
//	│ POST   │ /snapshots/query        │ Evaluate filter criteria         │
//	│ POST   │ /snapshots/export       │ Export matching snapshots (xlsx) │
//	│ POST   │ /runs                   │ Start a bulk run                 │
//	│ GET    │ /runs/current           │ Progress of the latest run       │
//	│ DELETE │ /runs/current           │ Cancel the active run            │
//	│ GET    │ /settings               │ Persisted operator preferences   │
//	│ PUT    │ /settings               │ Update operator preferences      │
//	└────────┴─────────────────────────┴──────────────────────────────────┘
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/services"
	"github.com/vmops/snapfleet/internal/sessions"
	"github.com/vmops/snapfleet/internal/store"
)

// CredentialWriter stores and removes endpoint passwords. Reads go
// through the pool's provider, never through handlers.
type CredentialWriter interface {
	Save(ref models.CredentialRef, password string) error
	Delete(ref models.CredentialRef) error
}

type Handler struct {
	pool         *sessions.Pool
	creds        CredentialWriter
	endpoints    *store.EndpointStore
	settings     *store.SettingsStore
	statusSrv    *services.StatusService
	inventorySrv *services.InventoryService
	runSrv       *services.RunService
}

func New(
	pool *sessions.Pool,
	creds CredentialWriter,
	endpoints *store.EndpointStore,
	settings *store.SettingsStore,
	statusSrv *services.StatusService,
	inventorySrv *services.InventoryService,
	runSrv *services.RunService,
) *Handler {
	return &Handler{
		pool:         pool,
		creds:        creds,
		endpoints:    endpoints,
		settings:     settings,
		statusSrv:    statusSrv,
		inventorySrv: inventorySrv,
		runSrv:       runSrv,
	}
}

// Register wires every route onto the given group.
func (h *Handler) Register(router *gin.RouterGroup) {
	router.GET("/sessions", h.ListSessions)
	router.POST("/sessions", h.RegisterEndpoint)
	router.POST("/sessions/:id/connect", h.ConnectSession)
	router.POST("/sessions/:id/disconnect", h.DisconnectSession)
	router.DELETE("/sessions/:id", h.RemoveSession)

	router.GET("/inventory", h.GetInventory)
	router.POST("/inventory/refresh", h.RefreshInventory)

	router.POST("/snapshots/query", h.QuerySnapshots)
	router.POST("/snapshots/export", h.ExportSnapshots)

	router.POST("/runs", h.StartRun)
	router.GET("/runs/current", h.GetCurrentRun)
	router.DELETE("/runs/current", h.CancelRun)

	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)
}
