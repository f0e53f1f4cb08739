// Package remote is the viewer side of the connection to the host.
// It does not reconnect: once disconnected, a new Client has to be created.
package remote

import (
	"context"
	"errors"
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/command"
	"github.com/gorilla/websocket"
	"sync"
	"time"
)

var l = gogger.New("remote")

const (
	MaxFrameSize = 16 << 20
	WriteTimeout = 10 * time.Second
	PongTimeout  = 60 * time.Second
	PingInterval = 30 * time.Second
)

var ErrNotConnected = errors.New("not connected")

type Status int

const (
	Connecting Status = iota
	Connected
	Disconnected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Client struct {
	url    string
	dialer *websocket.Dialer

	// OnFrame receives every binary message, on the read goroutine.
	OnFrame func(frame []byte)

	conn        *websocket.Conn
	writeLocker sync.Locker

	locker   sync.Locker
	status   Status
	handlers []func(Status)
	done     chan struct{}
	closed   bool
}

func New(url string) *Client {
	return &Client{
		url:         url,
		dialer:      websocket.DefaultDialer,
		writeLocker: &sync.Mutex{},
		locker:      &sync.Mutex{},
		status:      Disconnected,
		done:        make(chan struct{}),
	}
}

// OnStatus registers a handler called on every status change, outside of any lock.
func (c *Client) OnStatus(handler func(Status)) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *Client) Status() Status {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.status
}

func (c *Client) Connected() bool {
	return c.Status() == Connected
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) setStatus(status Status) {
	c.locker.Lock()
	if c.status == status || (c.closed && status != Disconnected) {
		c.locker.Unlock()
		return
	}
	c.status = status
	handlers := append([]func(Status){}, c.handlers...)
	c.locker.Unlock()

	l.Info().Println(c.url, status)
	for _, handler := range handlers {
		handler(status)
	}
}

// Connect dials the host and starts reading. It can only be called once.
func (c *Client) Connect(ctx context.Context) error {
	c.locker.Lock()
	if c.conn != nil || c.closed {
		c.locker.Unlock()
		return errors.New("client already used")
	}
	c.locker.Unlock()

	c.setStatus(Connecting)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.finish()
		return err
	}

	c.locker.Lock()
	c.conn = conn
	c.locker.Unlock()

	c.setStatus(Connected)

	go c.readPump(conn)
	go c.pingPump(conn)

	return nil
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer c.finish()

	conn.SetReadLimit(MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongTimeout))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn().Println("read:", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(PongTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			if c.OnFrame != nil {
				c.OnFrame(data)
			}
		default:
			l.Verbose().Println("ignore message:", string(data))
		}
	}
}

func (c *Client) pingPump(conn *websocket.Conn) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.write(conn, websocket.PingMessage, nil)
			if err != nil {
				l.Verbose().Println("ping:", err)
				return
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeLocker.Lock()
	defer c.writeLocker.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return conn.WriteMessage(messageType, data)
}

func (c *Client) finish() {
	c.locker.Lock()
	if c.closed {
		c.locker.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.locker.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	c.setStatus(Disconnected)
}

// Send writes one command as a text message.
func (c *Client) Send(cmd command.Command) error {
	c.locker.Lock()
	conn := c.conn
	connected := c.status == Connected
	c.locker.Unlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	msg, err := command.Encode(cmd)
	if err != nil {
		return err
	}

	return c.write(conn, websocket.TextMessage, msg)
}

func (c *Client) SendCombo(keys []string) error {
	return c.Send(command.NewCombo(keys))
}

// Close says goodbye to the host and drops the connection.
func (c *Client) Close() error {
	c.locker.Lock()
	conn := c.conn
	c.locker.Unlock()

	if conn != nil {
		_ = c.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}

	c.finish()
	return nil
}
