package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/domain/interfaces"
)

var ErrClientInactive = errors.New("client is inactive")

// Client is one connected ledger event subscriber.
type Client struct {
	id     string
	conn   *websocket.Conn
	active bool
	send   chan *domain.LedgerEvent
	done   chan struct{}
}

func NewClient(conn *websocket.Conn) interfaces.WebSocketClient {
	client := &Client{
		id:     uuid.New().String(),
		conn:   conn,
		active: true,
		send:   make(chan *domain.LedgerEvent, 256),
		done:   make(chan struct{}),
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) GetID() string {
	return c.id
}

// Send queues an event for delivery. A full queue drops the event rather
// than blocking the broadcaster.
func (c *Client) Send(event *domain.LedgerEvent) error {
	if !c.active {
		return ErrClientInactive
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrClientInactive
	default:
		log.Warn().Str("client_id", c.id).Msg("WebSocket client send channel full, dropping event")
		return errors.New("send channel full")
	}
}

func (c *Client) Close() error {
	if !c.active {
		return nil
	}

	c.active = false
	close(c.done)

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

func (c *Client) IsActive() bool {
	return c.active
}

// HandleConnection blocks until the connection is closed.
func (c *Client) HandleConnection() {
	defer c.Close()

	<-c.done
}

// readPump drains inbound frames; subscribers never send us anything
// meaningful, but reading is what keeps pong handling alive.
func (c *Client) readPump() {
	defer func() {
		c.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-c.done:
			return
		default:
			_, _, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Error().Err(err).Str("client_id", c.id).Msg("Unexpected WebSocket close error")
				}
				return
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Str("client_id", c.id).Msg("Failed to marshal ledger event")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
