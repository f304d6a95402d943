package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/store"
)

// ListSessions returns every session with its health state
// (GET /sessions)
func (h *Handler) ListSessions(c *gin.Context) {
	health := h.statusSrv.Sessions()

	out := make([]v1.Session, 0, len(health))
	for _, s := range health {
		out = append(out, v1.NewSessionFromHealth(s))
	}
	c.JSON(http.StatusOK, out)
}

// RegisterEndpoint stores an endpoint with its credential and adds a
// disconnected session for it
// (POST /sessions)
func (h *Handler) RegisterEndpoint(c *gin.Context) {
	var req v1.RegisterEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostname, username, and password are required"})
		return
	}

	existing, err := h.endpoints.List(c.Request.Context(), store.ByHostname(req.Hostname))
	if err != nil {
		zap.S().Named("session_handler").Errorw("failed to look up endpoint", "hostname", req.Hostname, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up endpoint"})
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "endpoint already registered"})
		return
	}

	endpoint := models.Endpoint{
		Hostname: req.Hostname,
		CredentialRef: models.CredentialRef{
			Hostname: req.Hostname,
			Username: req.Username,
		},
		VerifySSL: req.VerifySSL,
	}

	if err := h.creds.Save(endpoint.CredentialRef, req.Password); err != nil {
		zap.S().Named("session_handler").Errorw("failed to save credential", "hostname", req.Hostname, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save credential"})
		return
	}
	if err := h.endpoints.Save(c.Request.Context(), endpoint); err != nil {
		zap.S().Named("session_handler").Errorw("failed to save endpoint", "hostname", req.Hostname, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save endpoint"})
		return
	}

	id := h.pool.Register(endpoint)
	c.JSON(http.StatusCreated, gin.H{"id": id, "hostname": endpoint.Hostname})
}

// ConnectSession authenticates a session; failures are reported to the
// caller, never retried behind their back
// (POST /sessions/:id/connect)
func (h *Handler) ConnectSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.pool.Connect(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "state": models.SessionStateConnected})
}

// DisconnectSession tears a session down; repeating it is harmless
// (POST /sessions/:id/disconnect)
func (h *Handler) DisconnectSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	h.pool.Disconnect(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"id": id, "state": models.SessionStateDisconnected})
}

// RemoveSession drops the session, its stored endpoint and credential
// (DELETE /sessions/:id)
func (h *Handler) RemoveSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var ref *models.CredentialRef
	for _, status := range h.pool.Sessions() {
		if status.ID == id {
			ref = &status.Endpoint.CredentialRef
			break
		}
	}
	if ref == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	h.pool.Remove(c.Request.Context(), id)
	if err := h.endpoints.Delete(c.Request.Context(), ref.Hostname); err != nil {
		zap.S().Named("session_handler").Errorw("failed to delete endpoint", "hostname", ref.Hostname, "error", err)
	}
	if err := h.creds.Delete(*ref); err != nil {
		zap.S().Named("session_handler").Errorw("failed to delete credential", "hostname", ref.Hostname, "error", err)
	}
	c.Status(http.StatusNoContent)
}

func sessionID(c *gin.Context) (models.SessionID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}
