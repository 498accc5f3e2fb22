package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/chorechart/internal/model"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second

	// Clients never send payloads, only control frames.
	readLimit = 512
)

// Client represents a single WebSocket connection of one participant.
type Client struct {
	hub         *Hub
	conn        *ws.Conn
	participant model.Participant
	send        chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, p model.Participant) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		participant: p,
		send:        make(chan []byte, sendBufferSize),
	}
}

// Participant returns whose session opened the connection.
func (c *Client) Participant() model.Participant {
	return c.participant
}

// Run registers the client and pumps messages until either side hangs up or
// ctx ends. The hub stops delivering once Run returns.
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump(ctx)
		cancel()
	}()

	err := c.readPump(ctx)
	cancel()
	<-done

	if ws.CloseStatus(err) == ws.StatusNormalClosure || ws.CloseStatus(err) == ws.StatusGoingAway {
		c.conn.Close(ws.StatusNormalClosure, "")
		return
	}
	c.conn.CloseNow()
}

// readPump discards whatever the browser sends and returns the error that
// ended the connection.
func (c *Client) readPump(ctx context.Context) error {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}

// writePump forwards hub messages and pings the peer so dead connections
// are noticed. It returns on the first failed write.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
