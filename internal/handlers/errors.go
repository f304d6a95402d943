package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

// writeError maps service error kinds onto HTTP status codes. Anything
// unclassified is a 500 with a generic message; the specific error goes
// to the log, not the wire.
func writeError(c *gin.Context, err error) {
	switch {
	case srvErrors.IsSessionNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case srvErrors.IsAuthError(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case srvErrors.IsNotConnectedError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case srvErrors.IsRunInProgressError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case srvErrors.IsChainProtectedError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case srvErrors.IsNetworkError(err), srvErrors.IsTimeoutError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
