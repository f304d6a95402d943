package errors

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// AuthError indicates a bad or revoked credential. Never retried
// automatically; the session stays down until the operator re-enters
// credentials.
type AuthError struct {
	Hostname string
	Reason   string
}

func NewAuthError(hostname, reason string) *AuthError {
	return &AuthError{Hostname: hostname, Reason: reason}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Hostname, e.Reason)
}

func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

// NetworkError indicates a transient transport failure. Retried with
// backoff by the supervisor and up to a small fixed count per task by
// the executor.
type NetworkError struct {
	Hostname string
	Err      error
}

func NewNetworkError(hostname string, err error) *NetworkError {
	return &NetworkError{Hostname: hostname, Err: err}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %v", e.Hostname, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// TimeoutError indicates a remote call exceeded its deadline. Treated
// identically to NetworkError for retry and health-check purposes.
type TimeoutError struct {
	Hostname string
	Op       string
}

func NewTimeoutError(hostname, op string) *TimeoutError {
	return &TimeoutError{Hostname: hostname, Op: op}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out on %s", e.Op, e.Hostname)
}

func IsTimeoutError(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// IsRetryable reports whether the error is a transient network or
// timeout failure worth retrying.
func IsRetryable(err error) bool {
	return IsNetworkError(err) || IsTimeoutError(err)
}

// MalformedResponseError indicates the endpoint answered but the
// response could not be decoded. The connection itself may still be
// healthy, so this kind never changes session state and is not
// retried as a transport failure.
type MalformedResponseError struct {
	Hostname string
	Op       string
	Err      error
}

func NewMalformedResponseError(hostname, op string, err error) *MalformedResponseError {
	return &MalformedResponseError{Hostname: hostname, Op: op, Err: err}
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s during %s: %v", e.Hostname, e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func IsMalformedResponseError(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

// MalformedInventoryError indicates inventory data that violates the
// snapshot forest invariants, e.g. a parent/child cycle. Aborts the
// affected tree build only; the session itself may still be healthy.
type MalformedInventoryError struct {
	VMID   string
	Reason string
}

func NewMalformedInventoryError(vmID, reason string) *MalformedInventoryError {
	return &MalformedInventoryError{VMID: vmID, Reason: reason}
}

func (e *MalformedInventoryError) Error() string {
	return fmt.Sprintf("malformed inventory for vm %s: %s", e.VMID, e.Reason)
}

func IsMalformedInventoryError(err error) bool {
	var e *MalformedInventoryError
	return errors.As(err, &e)
}

// ChainProtectedError indicates a local policy rejection: the snapshot
// has descendants and deleting it would force disk consolidation. The
// request is never sent to the remote endpoint.
type ChainProtectedError struct {
	VMName       string
	SnapshotID   string
	SnapshotName string
}

func NewChainProtectedError(vmName, snapshotID, snapshotName string) *ChainProtectedError {
	return &ChainProtectedError{VMName: vmName, SnapshotID: snapshotID, SnapshotName: snapshotName}
}

func (e *ChainProtectedError) Error() string {
	return fmt.Sprintf("snapshot %q on %s has child snapshots and cannot be deleted", e.SnapshotName, e.VMName)
}

func IsChainProtectedError(err error) bool {
	var e *ChainProtectedError
	return errors.As(err, &e)
}

// NotConnectedError is returned when a client is requested for a session
// that is not in the connected state. The caller must route through
// Connect first.
type NotConnectedError struct {
	SessionID uuid.UUID
}

func NewNotConnectedError(sessionID uuid.UUID) *NotConnectedError {
	return &NotConnectedError{SessionID: sessionID}
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("session %s is not connected", e.SessionID)
}

func IsNotConnectedError(err error) bool {
	var e *NotConnectedError
	return errors.As(err, &e)
}

// SessionNotFoundError indicates an unknown session id.
type SessionNotFoundError struct {
	SessionID uuid.UUID
}

func NewSessionNotFoundError(sessionID uuid.UUID) *SessionNotFoundError {
	return &SessionNotFoundError{SessionID: sessionID}
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

func IsSessionNotFoundError(err error) bool {
	var e *SessionNotFoundError
	return errors.As(err, &e)
}

// RunInProgressError indicates a bulk run is already executing.
type RunInProgressError struct{}

func NewRunInProgressError() *RunInProgressError {
	return &RunInProgressError{}
}

func (e *RunInProgressError) Error() string {
	return "bulk run already in progress"
}

func IsRunInProgressError(err error) bool {
	var e *RunInProgressError
	return errors.As(err, &e)
}

// ClassifyEndpointError sorts a raw error from the vendor SDK into one
// of the kinds above. vCenter reports login failures as plain faults, so
// the message is sniffed for the known phrasings.
func ClassifyEndpointError(hostname, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAuthError(err) || IsNetworkError(err) || IsTimeoutError(err) || IsMalformedResponseError(err) {
		return err
	}

	// A response that arrived but would not decode is not a transport
	// failure; the session may still be healthy.
	var xmlSyntaxErr *xml.SyntaxError
	var xmlUnmarshalErr xml.UnmarshalError
	if errors.As(err, &xmlSyntaxErr) || errors.As(err, &xmlUnmarshalErr) {
		return NewMalformedResponseError(hostname, op, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "Login failure") ||
		strings.Contains(msg, "Cannot complete login") ||
		(strings.Contains(msg, "incorrect") && strings.Contains(msg, "password")) {
		return NewAuthError(hostname, msg)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(hostname, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewTimeoutError(hostname, op)
		}
		return NewNetworkError(hostname, err)
	}

	return NewNetworkError(hostname, err)
}
