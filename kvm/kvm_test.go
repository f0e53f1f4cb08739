package kvm

import (
	"context"
	"errors"
	"github.com/allape/rein/kvm/capture"
	"github.com/allape/rein/kvm/command"
	"github.com/allape/rein/kvm/keymouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

var errClosed = errors.New("client closed")

type fakeClient struct {
	inbox chan []byte

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{inbox: make(chan []byte, 16)}
}

func (c *fakeClient) send(t *testing.T, cmd command.Command) {
	t.Helper()
	msg, err := command.Encode(cmd)
	require.NoError(t, err)
	c.inbox <- msg
}

func (c *fakeClient) ReadMessage() ([]byte, error) {
	msg, ok := <-c.inbox
	if !ok {
		return nil, errClosed
	}
	return msg, nil
}

func (c *fakeClient) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
	}
	return nil
}

func (c *fakeClient) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type fakeCapture struct {
	capture.Driver

	mu     sync.Mutex
	opens  int
	closes int
	seq    int
}

func (c *fakeCapture) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	return nil
}

func (c *fakeCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeCapture) GetFrameRate() float64 {
	return 200
}

func (c *fakeCapture) GetFrame() ([]byte, capture.Changed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return []byte{byte(c.seq)}, true, nil
}

func (c *fakeCapture) Counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes
}

type fakeKeyMouse struct {
	keymouse.Driver

	// when set, Inject blocks until gate is closed
	gate chan struct{}

	mu       sync.Mutex
	injected []command.Command
}

func (k *fakeKeyMouse) Inject(ctx context.Context, cmd command.Command) error {
	if k.gate != nil {
		select {
		case <-k.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.injected = append(k.injected, cmd)
	return nil
}

func (k *fakeKeyMouse) Injected() []command.Command {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]command.Command(nil), k.injected...)
}

func serve(t *testing.T, s *Server, client Client) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.HandleClient(context.Background(), client)
	}()
	return done
}

func TestStreamsOnlyBetweenStartAndStop(t *testing.T) {
	source := &fakeCapture{}
	s := New(source, &fakeKeyMouse{}, Options{})
	client := newFakeClient()
	done := serve(t, s, client)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, client.Frames(), "no frames before start-mirror")

	client.send(t, command.NewControl(command.StartMirror))
	require.Eventually(t, func() bool {
		return client.Frames() >= 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Streaming())

	client.send(t, command.NewControl(command.StopMirror))
	require.Eventually(t, func() bool {
		return s.Streaming() == 0
	}, time.Second, time.Millisecond)

	stopped := client.Frames()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, client.Frames(), "no frames after stop-mirror")

	opens, closes := source.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)

	_ = client.Close()
	assert.ErrorIs(t, <-done, errClosed)
}

func TestDispatchesCommands(t *testing.T) {
	km := &fakeKeyMouse{}
	s := New(&fakeCapture{}, km, Options{})
	client := newFakeClient()
	done := serve(t, s, client)

	client.send(t, command.NewMove(4, -2))
	client.inbox <- []byte(`{"type":"teleport"}`)
	client.inbox <- []byte(`not json`)
	client.send(t, command.NewCombo([]string{"control", "c"}))

	require.Eventually(t, func() bool {
		return len(km.Injected()) == 2
	}, time.Second, time.Millisecond)

	injected := km.Injected()
	assert.Equal(t, command.NewMove(4, -2), injected[0])
	assert.Equal(t, []string{"control", "c"}, injected[1].Keys)

	_ = client.Close()
	<-done
}

func TestDisconnectStopsStreaming(t *testing.T) {
	source := &fakeCapture{}
	s := New(source, &fakeKeyMouse{}, Options{})

	a, b := newFakeClient(), newFakeClient()
	doneA, doneB := serve(t, s, a), serve(t, s, b)

	a.send(t, command.NewControl(command.StartMirror))
	b.send(t, command.NewControl(command.StartMirror))
	require.Eventually(t, func() bool {
		return s.Streaming() == 2
	}, time.Second, time.Millisecond)

	_ = a.Close()
	<-doneA
	assert.Equal(t, 1, s.Streaming())
	_, closes := source.Counts()
	assert.Equal(t, 0, closes, "capture stays open while a viewer streams")

	_ = b.Close()
	<-doneB
	assert.Equal(t, 0, s.Streaming())
	opens, closes := source.Counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestDispatchWithoutDriver(t *testing.T) {
	s := New(&fakeCapture{}, nil, Options{})
	err := s.Dispatch(context.Background(), command.NewMove(1, 1))
	assert.ErrorIs(t, err, keymouse.ErrUnavailable)
}

func TestSlowInjectionDoesNotBlockControl(t *testing.T) {
	source := &fakeCapture{}
	km := &fakeKeyMouse{gate: make(chan struct{})}
	s := New(source, km, Options{CommandTimeout: 5 * time.Second})
	client := newFakeClient()
	done := serve(t, s, client)

	client.send(t, command.NewMove(1, 1))
	client.send(t, command.NewControl(command.StartMirror))
	require.Eventually(t, func() bool {
		return s.Streaming() == 1
	}, time.Second, time.Millisecond)

	client.send(t, command.NewControl(command.StopMirror))
	require.Eventually(t, func() bool {
		return s.Streaming() == 0
	}, time.Second, time.Millisecond)

	client.send(t, command.NewKey("a"))
	client.send(t, command.NewKey("b"))
	assert.Empty(t, km.Injected(), "the first injection is still blocked")

	close(km.gate)
	require.Eventually(t, func() bool {
		return len(km.Injected()) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []command.Command{
		command.NewMove(1, 1),
		command.NewKey("a"),
		command.NewKey("b"),
	}, km.Injected())

	_ = client.Close()
	assert.ErrorIs(t, <-done, errClosed)
}

func TestFullCommandQueueDrops(t *testing.T) {
	km := &fakeKeyMouse{gate: make(chan struct{})}
	s := New(&fakeCapture{}, km, Options{CommandTimeout: 5 * time.Second, CommandQueue: 1})
	client := newFakeClient()
	done := serve(t, s, client)

	for i := 0; i < 5; i++ {
		client.send(t, command.NewMove(float64(i), 0))
	}
	client.send(t, command.NewControl(command.StartMirror))
	require.Eventually(t, func() bool {
		return s.Streaming() == 1
	}, time.Second, time.Millisecond)

	close(km.gate)
	require.Eventually(t, func() bool {
		return len(km.Injected()) >= 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	injected := km.Injected()
	assert.LessOrEqual(t, len(injected), 2, "one in flight and one queued")
	assert.Equal(t, command.NewMove(0, 0), injected[0])

	_ = client.Close()
	<-done
}
