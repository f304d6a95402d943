// Package errors provides the typed error kinds used across the
// snapshot manager core.
//
// Each kind has a constructor, an Error() method and an Is* helper
// built on errors.As so wrapped errors still match.
//
// # Error kinds
//
//	┌─────────────────────────┬──────────────────────────────────────────────┐
//	│ Error Type              │ Meaning / retry policy                       │
//	├─────────────────────────┼──────────────────────────────────────────────┤
//	│ AuthError               │ Bad or revoked credential; never auto-retried│
//	│ NetworkError            │ Transient transport failure; retried with    │
//	│                         │ backoff by the supervisor                    │
//	│ TimeoutError            │ Deadline exceeded; same policy as network    │
//	│ MalformedInventoryError │ Inventory violates forest invariants; aborts │
//	│                         │ that tree build only                         │
//	│ ChainProtectedError     │ Local policy rejection of a delete; never    │
//	│                         │ sent to the remote endpoint                  │
//	│ NotConnectedError       │ Client requested on a non-connected session  │
//	│ SessionNotFoundError    │ Unknown session id                           │
//	│ RunInProgressError      │ A bulk run is already executing              │
//	└─────────────────────────┴──────────────────────────────────────────────┘
//
// # Classification
//
// ClassifyEndpointError turns a raw govmomi/transport error into one of
// the kinds above. vCenter signals login failures as plain faults, so
// the fault message is sniffed ("Login failure", "incorrect ... password")
// the same way NewVCenterError-style wrappers do; everything else is
// split into timeout vs. network by inspecting the error chain.
//
// # Handler mapping
//
// The HTTP surface maps kinds to status codes:
//
//	switch {
//	case errors.IsSessionNotFoundError(err):
//	    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
//	case errors.IsChainProtectedError(err):
//	    c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
//	case errors.IsAuthError(err):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
//	}
package errors
