package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/executor"
)

// StartRun launches a bulk run over the posted tasks
// (POST /runs)
func (h *Handler) StartRun(c *gin.Context) {
	var req v1.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run request: " + err.Error()})
		return
	}
	for _, t := range req.Tasks {
		if t.Kind == "delete" && t.Delete == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delete tasks need a snapshotId"})
			return
		}
	}

	run, err := h.runSrv.Start(c.Request.Context(), req.BulkTasks(), executor.Config{
		Concurrency: req.Concurrency,
		Operator:    req.Operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, v1.NewRunStatus(run, true))
}

// GetCurrentRun reports the active run, or the last finished one
// (GET /runs/current)
func (h *Handler) GetCurrentRun(c *gin.Context) {
	run, ok := h.runSrv.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs yet"})
		return
	}
	select {
	case <-run.Done():
		c.JSON(http.StatusOK, v1.NewRunStatus(run, false))
	default:
		c.JSON(http.StatusOK, v1.NewRunStatus(run, true))
	}
}

// CancelRun requests cooperative cancellation of the active run
// (DELETE /runs/current)
func (h *Handler) CancelRun(c *gin.Context) {
	if !h.runSrv.Cancel() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active run"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}
