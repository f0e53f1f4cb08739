package main

import (
	"github.com/allape/rein/kvm"
	"github.com/gorilla/websocket"
	"sync"
	"time"
)

const (
	WriteTimeout = 10 * time.Second
	MaxMessage   = 64 << 10
)

type WebsocketKVMClient struct {
	Conn   *websocket.Conn
	locker sync.Locker
}

// ReadMessage skips anything that is not a text message.
func (w *WebsocketKVMClient) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := w.Conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (w *WebsocketKVMClient) WriteFrame(frame []byte) error {
	w.locker.Lock()
	defer w.locker.Unlock()

	_ = w.Conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return w.Conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *WebsocketKVMClient) Close() error {
	return w.Conn.Close()
}

func Websocket2KVMClient(conn *websocket.Conn) kvm.Client {
	conn.SetReadLimit(MaxMessage)
	return &WebsocketKVMClient{Conn: conn, locker: &sync.Mutex{}}
}
