package websocket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/pkg/config"
)

type stubClient struct {
	id      string
	mu      sync.Mutex
	events  []*domain.LedgerEvent
	sendErr error
	active  bool
	closed  bool
}

func newStubClient(id string) *stubClient {
	return &stubClient{id: id, active: true}
}

func (c *stubClient) GetID() string { return c.id }

func (c *stubClient) Send(event *domain.LedgerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *stubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.closed = true
	return nil
}

func (c *stubClient) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *stubClient) HandleConnection() {}

func (c *stubClient) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestManager() *Manager {
	return NewManager(config.WebSocketConfig{}).(*Manager)
}

func TestManager_ClientLifecycle(t *testing.T) {
	manager := newTestManager()

	a := newStubClient("a")
	b := newStubClient("b")
	require.NoError(t, manager.AddClient(a))
	require.NoError(t, manager.AddClient(b))
	assert.Equal(t, 2, manager.GetClientCount())

	require.NoError(t, manager.RemoveClient("a"))
	assert.Equal(t, 1, manager.GetClientCount())
	assert.True(t, a.closed)
}

func TestManager_Broadcast(t *testing.T) {
	t.Run("DeliversToAllClients", func(t *testing.T) {
		manager := newTestManager()
		a := newStubClient("a")
		b := newStubClient("b")
		require.NoError(t, manager.AddClient(a))
		require.NoError(t, manager.AddClient(b))

		event := &domain.LedgerEvent{Type: "deposit_completed", UserID: "u1"}
		require.NoError(t, manager.Broadcast(event))

		assert.Equal(t, 1, a.received())
		assert.Equal(t, 1, b.received())
	})

	t.Run("DropsClientThatFailedInactive", func(t *testing.T) {
		manager := newTestManager()
		healthy := newStubClient("healthy")
		dead := newStubClient("dead")
		dead.sendErr = ErrClientInactive
		dead.active = false
		require.NoError(t, manager.AddClient(healthy))
		require.NoError(t, manager.AddClient(dead))

		require.NoError(t, manager.Broadcast(&domain.LedgerEvent{Type: "withdrawal_failed"}))

		assert.Equal(t, 1, healthy.received())
		assert.Equal(t, 1, manager.GetClientCount())
	})
}
