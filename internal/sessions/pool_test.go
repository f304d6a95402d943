package sessions_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/sessions"
	"github.com/vmops/snapfleet/pkg/credentials"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
	"github.com/vmops/snapfleet/pkg/vmware"
)

// fakeDialer hands out fakeClients and records every dial.
type fakeDialer struct {
	mu      sync.Mutex
	clients map[string]*fakeClient
	dialErr error
	calls   int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{clients: make(map[string]*fakeClient)}
}

func (d *fakeDialer) dial(ctx context.Context, endpoint models.Endpoint, id models.SessionID, secret credentials.Secret) (vmware.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	c := newFakeClient(endpoint.Hostname)
	d.clients[endpoint.Hostname] = c
	return c, nil
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

func (d *fakeDialer) dialCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) client(hostname string) *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[hostname]
}

var _ = Describe("Pool", func() {
	var (
		ctx      context.Context
		provider *fakeProvider
		dialer   *fakeDialer
		pool     *sessions.Pool
		endpoint models.Endpoint
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = newFakeProvider()
		dialer = newFakeDialer()
		pool = sessions.NewPool(provider, sessions.WithDialer(dialer.dial))

		endpoint = models.Endpoint{
			Hostname:      "vc01.example.com",
			CredentialRef: models.CredentialRef{Hostname: "vc01.example.com", Username: "admin"},
		}
		provider.set(endpoint.CredentialRef, credentials.Secret{Username: "admin", Password: "s3cret"})
	})

	Context("Register", func() {
		It("should add a disconnected session without dialing", func() {
			id := pool.Register(endpoint)

			statuses := pool.Sessions()
			Expect(statuses).To(HaveLen(1))
			Expect(statuses[0].ID).To(Equal(id))
			Expect(statuses[0].State).To(Equal(models.SessionStateDisconnected))
			Expect(dialer.dialCalls()).To(BeZero())
		})
	})

	Context("Connect", func() {
		It("should authenticate and make the client available", func() {
			id := pool.Register(endpoint)

			Expect(pool.Connect(ctx, id)).To(Succeed())

			client, err := pool.GetClient(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Hostname()).To(Equal("vc01.example.com"))
		})

		It("should report a dial failure to the caller without retrying", func() {
			id := pool.Register(endpoint)
			dialer.setErr(srvErrors.NewNetworkError("vc01.example.com", errors.New("connection refused")))

			err := pool.Connect(ctx, id)
			Expect(srvErrors.IsNetworkError(err)).To(BeTrue())
			Expect(dialer.dialCalls()).To(Equal(1))

			_, err = pool.GetClient(id)
			Expect(srvErrors.IsNotConnectedError(err)).To(BeTrue())
		})

		It("should turn an invalid credential into an auth error", func() {
			id := pool.Register(endpoint)
			provider.revoke(endpoint.CredentialRef)

			err := pool.Connect(ctx, id)
			Expect(srvErrors.IsAuthError(err)).To(BeTrue())
			Expect(dialer.dialCalls()).To(BeZero())
		})
	})

	Context("GetClient", func() {
		It("should refuse when the session was never connected", func() {
			id := pool.Register(endpoint)

			_, err := pool.GetClient(id)
			Expect(srvErrors.IsNotConnectedError(err)).To(BeTrue())
		})

		It("should refuse for an unknown session id", func() {
			other := pool.Register(endpoint)
			pool.Remove(ctx, other)

			_, err := pool.GetClient(other)
			Expect(srvErrors.IsSessionNotFoundError(err)).To(BeTrue())
		})
	})

	Context("Disconnect", func() {
		It("should log the transport out and be idempotent", func() {
			id := pool.Register(endpoint)
			Expect(pool.Connect(ctx, id)).To(Succeed())
			client := dialer.client("vc01.example.com")

			pool.Disconnect(ctx, id)
			pool.Disconnect(ctx, id)

			Expect(client.logoutCalls).To(Equal(1))
			_, err := pool.GetClient(id)
			Expect(srvErrors.IsNotConnectedError(err)).To(BeTrue())
		})
	})
})
