package kvm

import (
	"bytes"
	"context"
	"errors"
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/capture"
	"github.com/allape/rein/kvm/command"
	"github.com/allape/rein/kvm/keymouse"
	"sync"
	"time"
)

var l = gogger.New("kvm")

const (
	DefaultCommandTimeout = 2 * time.Second
	DefaultCommandQueue   = 64
)

// Client is one connected viewer.
type Client interface {
	// ReadMessage blocks until the viewer sends the next control or command message.
	ReadMessage() ([]byte, error)
	// WriteFrame sends one encoded frame. It is only called from one goroutine at a time.
	WriteFrame(frame []byte) error
	Close() error
}

type Options struct {
	CommandTimeout time.Duration
	// CommandQueue bounds the commands of one viewer waiting for injection; later ones are dropped.
	CommandQueue int
}

// Server streams the host screen to viewers that asked for it and injects their commands.
type Server struct {
	Capture  capture.Driver
	KeyMouse keymouse.Driver

	Options Options

	locker    sync.Locker
	streaming int
}

// acquireCapture opens the capture driver for the first streaming viewer.
func (s *Server) acquireCapture() error {
	s.locker.Lock()
	defer s.locker.Unlock()

	if s.streaming == 0 {
		err := s.Capture.Open()
		if err != nil {
			return err
		}
		l.Info().Println("capture opened")
	}
	s.streaming++

	return nil
}

// releaseCapture closes the capture driver when the last streaming viewer leaves.
func (s *Server) releaseCapture() {
	s.locker.Lock()
	defer s.locker.Unlock()

	s.streaming--
	if s.streaming > 0 {
		return
	}
	s.streaming = 0

	err := s.Capture.Close()
	if err != nil {
		l.Error().Println("close capture:", err)
		return
	}
	l.Info().Println("capture closed")
}

func (s *Server) Streaming() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.streaming
}

func (s *Server) Dispatch(ctx context.Context, cmd command.Command) error {
	if s.KeyMouse == nil {
		return keymouse.ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.Options.CommandTimeout)
	defer cancel()

	return s.KeyMouse.Inject(ctx, cmd)
}

// dispatchLoop injects one viewer's commands in arrival order until ctx is done.
func (s *Server) dispatchLoop(ctx context.Context, commands <-chan command.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-commands:
			err := s.Dispatch(ctx, cmd)
			if err != nil {
				l.Warn().Println(cmd, "not injected:", err)
			}
		}
	}
}

// HandleClient serves one viewer until its connection fails or ctx is done.
// Mirror control is handled inline; commands are injected in arrival order on a separate goroutine.
func (s *Server) HandleClient(ctx context.Context, client Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()

	commands := make(chan command.Command, s.Options.CommandQueue)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		s.dispatchLoop(ctx, commands)
	}()
	defer func() {
		cancel()
		<-dispatched
	}()

	sess := &session{server: s, client: client}
	defer sess.stop()

	for {
		msg, err := client.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		cmd, err := command.Decode(msg)
		if err != nil {
			l.Warn().Println("drop message:", err)
			continue
		}

		switch cmd.Kind {
		case command.StartMirror:
			sess.start(ctx)
		case command.StopMirror:
			sess.stop()
		default:
			select {
			case commands <- cmd:
			default:
				l.Warn().Println("command queue full, drop", cmd)
			}
		}
	}
}

type session struct {
	server *Server
	client Client

	cancel context.CancelFunc
	done   chan struct{}
}

func (ss *session) start(ctx context.Context) {
	if ss.cancel != nil {
		return
	}

	err := ss.server.acquireCapture()
	if err != nil {
		l.Error().Println("open capture:", err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ss.cancel = cancel
	ss.done = make(chan struct{})

	go func() {
		defer close(ss.done)
		defer ss.server.releaseCapture()
		err := ss.stream(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Warn().Println("stream stopped:", err)
		}
	}()
}

func (ss *session) stop() {
	if ss.cancel == nil {
		return
	}
	ss.cancel()
	<-ss.done
	ss.cancel = nil
	ss.done = nil
}

func (ss *session) stream(ctx context.Context) error {
	frameRate := ss.server.Capture.GetFrameRate()
	if frameRate <= 0 {
		frameRate = 15
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / frameRate))
	defer ticker.Stop()

	var last []byte
	sent := false

	for {
		frame, changed, err := ss.server.Capture.GetFrame()
		if err != nil {
			l.Verbose().Println("get frame:", err)
		} else if len(frame) > 0 && (!sent || changed || !bytes.Equal(frame, last)) {
			err = ss.client.WriteFrame(frame)
			if err != nil {
				return err
			}
			last = frame
			sent = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func New(captureDriver capture.Driver, keyMouse keymouse.Driver, options Options) *Server {
	if options.CommandTimeout <= 0 {
		options.CommandTimeout = DefaultCommandTimeout
	}
	if options.CommandQueue <= 0 {
		options.CommandQueue = DefaultCommandQueue
	}

	return &Server{
		Capture:  captureDriver,
		KeyMouse: keyMouse,
		Options:  options,
		locker:   &sync.Mutex{},
	}
}
