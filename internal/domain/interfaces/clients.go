package interfaces

import (
	"context"

	"github.com/uuakee/xotc/internal/domain"
)

// GatewayClient is the outbound surface of the Clypt payment provider.
// Implementations must never be invoked while a store transaction is open.
type GatewayClient interface {
	CreateCharge(ctx context.Context, req *domain.ChargeRequest) (*domain.ChargeResponse, error)
	CreateTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.TransferResponse, error)
	UpdateCredentials(baseURL, publicKey, secretKey string)
}

// Broadcaster pushes ledger events to connected websocket clients.
type Broadcaster interface {
	Broadcast(event *domain.LedgerEvent) error
}

// WebSocketClient is a single connected status subscriber.
type WebSocketClient interface {
	GetID() string
	Send(event *domain.LedgerEvent) error
	Close() error
	IsActive() bool
	HandleConnection()
}

// WebSocketManager tracks subscribers and fans events out to them.
type WebSocketManager interface {
	Broadcaster
	AddClient(client WebSocketClient) error
	RemoveClient(clientID string) error
	GetClientCount() int
}
