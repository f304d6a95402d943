package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/filter"
	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/store"
	"github.com/vmops/snapfleet/pkg/query"
	"github.com/vmops/snapfleet/pkg/report"
)

// GetInventory returns the freshness and per-VM errors of the current
// inventory generation
// (GET /inventory)
func (h *Handler) GetInventory(c *gin.Context) {
	vmErrors := h.inventorySrv.Errors()
	errs := make([]gin.H, 0, len(vmErrors))
	for _, e := range vmErrors {
		errs = append(errs, gin.H{
			"hostname": e.Hostname,
			"vmId":     e.VMID,
			"vmName":   e.VMName,
			"error":    e.Err.Error(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"refreshedAt": h.inventorySrv.RefreshedAt(),
		"vms":         len(h.inventorySrv.Entries()),
		"errors":      errs,
	})
}

// RefreshInventory rebuilds the annotated inventory from every
// connected session
// (POST /inventory/refresh)
func (h *Handler) RefreshInventory(c *gin.Context) {
	h.inventorySrv.Refresh(c.Request.Context())
	h.GetInventory(c)
}

// QuerySnapshots evaluates filter criteria against the current
// inventory
// (POST /snapshots/query)
func (h *Handler) QuerySnapshots(c *gin.Context) {
	var req v1.SnapshotQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query body"})
		return
	}

	views, err := h.matchSnapshots(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := make([]v1.Snapshot, 0, len(views))
	for _, view := range views {
		out = append(out, v1.NewSnapshotFromView(view))
	}
	c.JSON(http.StatusOK, out)
}

// ExportSnapshots writes the matching snapshots as an xlsx workbook
// (POST /snapshots/export)
func (h *Handler) ExportSnapshots(c *gin.Context) {
	var req v1.SnapshotQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query body"})
		return
	}

	views, err := h.matchSnapshots(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("snapshots-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := report.WriteWorkbook(c.Writer, views); err != nil {
		zap.S().Named("snapshot_handler").Errorw("failed to export snapshots", "error", err)
		c.Status(http.StatusInternalServerError)
	}
}

// matchSnapshots evaluates the structured criteria first, then the
// optional query expression on top of the result. A request that does
// not name an age mode gets the persisted preference.
func (h *Handler) matchSnapshots(ctx context.Context, req v1.SnapshotQueryRequest) ([]filter.SnapshotView, error) {
	criteria := req.Criteria()
	if criteria.AgeMode == "" {
		mode, err := h.settings.Get(ctx, store.SettingAgeMode, "")
		if err != nil {
			zap.S().Named("snapshot_handler").Warnw("failed to load age mode setting", "error", err)
		}
		criteria.AgeMode = forest.AgeMode(mode)
	}

	views := h.inventorySrv.Query(criteria)
	if req.Query == "" {
		return views, nil
	}

	q, err := query.Compile([]byte(req.Query))
	if err != nil {
		return nil, fmt.Errorf("invalid query expression: %w", err)
	}
	matched := make([]filter.SnapshotView, 0, len(views))
	for _, view := range views {
		if q.Match(view) {
			matched = append(matched, view)
		}
	}
	return matched, nil
}
