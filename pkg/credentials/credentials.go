package credentials

import (
	"errors"

	"github.com/vmops/snapfleet/internal/models"
)

// ErrInvalid is returned when a credential reference cannot be resolved:
// the entry is missing, revoked, or the password changed out from under
// us. The supervisor treats this as fatal for the session until the
// operator re-enters credentials.
var ErrInvalid = errors.New("credential invalid")

// Secret is a resolved credential, held only for the duration of a
// single connect call.
type Secret struct {
	Username string
	Password string
}

// Provider resolves opaque credential references. The core never stores
// plaintext secrets; it passes references around and resolves them at
// connect time only.
type Provider interface {
	// Resolve returns the secret for a reference, or ErrInvalid.
	Resolve(ref models.CredentialRef) (Secret, error)
}

// Store is the management surface used by the operator-facing layer.
// Implementations can store credentials on disk or delegate to an OS
// keychain.
type Store interface {
	Provider

	// Save persists a credential for the given reference.
	Save(ref models.CredentialRef, password string) error

	// Delete removes the stored credential.
	// Returns nil if no credential exists.
	Delete(ref models.CredentialRef) error

	// Exists checks if a credential is stored for the reference.
	Exists(ref models.CredentialRef) bool
}
