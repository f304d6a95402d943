package vmware

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"

	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCallTimeout    = 30 * time.Second
)

// EndpointClient wraps one authenticated govmomi connection. The session
// pool owns the transport handle exclusively; other components only
// borrow the client for the duration of a single logical operation.
type EndpointClient struct {
	gc          *govmomi.Client
	hostname    string
	sessionID   models.SessionID
	callTimeout time.Duration
}

// Connect authenticates a new vSphere client connection to one endpoint.
//
// Parameters:
//   - ctx: the context for the login request.
//   - endpoint: the endpoint to dial; its hostname is expanded to the
//     SDK URL if no path is given.
//   - username, password: the resolved credential.
//
// Returns a classified error: AuthError on login failure, NetworkError
// or TimeoutError on transport problems.
func Connect(ctx context.Context, endpoint models.Endpoint, sessionID models.SessionID, username, password string) (*EndpointClient, error) {
	u, err := soap.ParseURL(endpoint.Hostname)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint URL: %w", err)
	}
	u.User = url.UserPassword(username, password)

	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	soapClient := soap.NewClient(u, !endpoint.VerifySSL)

	vimClient, err := vim25.NewClient(connectCtx, soapClient)
	if err != nil {
		return nil, srvErrors.ClassifyEndpointError(endpoint.Hostname, "connect", err)
	}

	gc := &govmomi.Client{
		Client:         vimClient,
		SessionManager: session.NewManager(vimClient),
	}

	if err := gc.Login(connectCtx, u.User); err != nil {
		return nil, srvErrors.ClassifyEndpointError(endpoint.Hostname, "login", err)
	}

	return &EndpointClient{
		gc:          gc,
		hostname:    endpoint.Hostname,
		sessionID:   sessionID,
		callTimeout: DefaultCallTimeout,
	}, nil
}

func (c *EndpointClient) Hostname() string {
	return c.hostname
}

// Logout terminates the remote session and releases idle connections.
// Safe to call on an already-dead session; the error is ignored upstream.
func (c *EndpointClient) Logout(ctx context.Context) error {
	logoutCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	err := c.gc.Logout(logoutCtx)
	c.gc.CloseIdleConnections()
	if err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "logout", err)
	}
	return nil
}

// opCtx derives the per-call deadline every remote call carries.
func (c *EndpointClient) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.callTimeout)
}
