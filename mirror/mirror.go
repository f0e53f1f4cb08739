// Package mirror renders the live host-screen view on the handheld side.
//
// Frames can arrive faster than they are decoded or painted. The pipeline never queues:
// a payload is dropped while a decode is in flight or a decoded frame waits for its paint,
// so the view always moves to the freshest frame the device can keep up with.
package mirror

import (
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/command"
	"sync"
)

var l = gogger.New("mirror")

// ControlSender delivers start-mirror and stop-mirror to the host.
type ControlSender interface {
	Send(c command.Command) error
}

type Stats struct {
	Accepted uint64
	Dropped  uint64
	Decoded  uint64
	Failed   uint64
	Painted  uint64
}

type Pipeline struct {
	decoder   Decoder
	scheduler Scheduler
	surface   Surface
	control   ControlSender

	locker sync.Locker

	// epoch changes on every Start and Stop; work begun in an older epoch is discarded
	epoch    uint64
	attached bool

	decoding      bool
	pendingRender bool
	current       *Frame
	hasFrame      bool

	stats Stats
}

func New(decoder Decoder, scheduler Scheduler, surface Surface, control ControlSender) *Pipeline {
	return &Pipeline{
		decoder:   decoder,
		scheduler: scheduler,
		surface:   surface,
		control:   control,
		locker:    &sync.Mutex{},
	}
}

// Start attaches the pipeline and asks the host to stream.
// It is a no-op when already attached.
func (p *Pipeline) Start() {
	p.locker.Lock()
	if p.attached {
		p.locker.Unlock()
		return
	}
	p.attached = true
	p.epoch++
	p.locker.Unlock()

	l.Info().Println("mirror started")

	err := p.control.Send(command.NewControl(command.StartMirror))
	if err != nil {
		l.Warn().Println("send start-mirror:", err)
	}
}

// Stop detaches the pipeline, cancels the pending paint, releases the held frame and
// asks the host to stop streaming. Nothing is painted after Stop returns.
// A decode still in flight keeps its slot until it finishes, even across a new Start.
func (p *Pipeline) Stop() {
	p.locker.Lock()
	if !p.attached {
		p.locker.Unlock()
		return
	}
	p.attached = false
	p.epoch++

	p.scheduler.Cancel()
	p.pendingRender = false
	p.hasFrame = false
	if p.current != nil {
		p.current.Release()
		p.current = nil
	}
	p.locker.Unlock()

	l.Info().Println("mirror stopped")

	err := p.control.Send(command.NewControl(command.StopMirror))
	if err != nil {
		l.Verbose().Println("send stop-mirror:", err)
	}
}

func (p *Pipeline) Attached() bool {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.attached
}

// HasFrame is false until the first frame after Start is decoded; it drives the "no frame yet" watermark.
func (p *Pipeline) HasFrame() bool {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.hasFrame
}

func (p *Pipeline) Stats() Stats {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.stats
}

// OnRawFrame takes one encoded frame from the connection. It reports whether the payload
// was accepted for decoding; a rejected payload is gone for good.
func (p *Pipeline) OnRawFrame(payload []byte) bool {
	p.locker.Lock()
	if !p.attached || p.decoding || p.pendingRender {
		p.stats.Dropped++
		p.locker.Unlock()
		return false
	}
	p.decoding = true
	p.stats.Accepted++
	epoch := p.epoch
	p.locker.Unlock()

	go p.decode(epoch, payload)

	return true
}

func (p *Pipeline) decode(epoch uint64, payload []byte) {
	frame, err := p.decoder.Decode(payload)

	p.locker.Lock()

	if epoch != p.epoch {
		p.decoding = false
		p.locker.Unlock()
		if frame != nil {
			frame.Release()
		}
		l.Verbose().Println("discard frame decoded after stop")
		return
	}

	p.decoding = false

	if err != nil {
		p.stats.Failed++
		p.locker.Unlock()
		l.Warn().Println("decode frame:", err)
		return
	}

	if p.current != nil {
		p.current.Release()
	}
	p.current = frame
	p.hasFrame = true
	p.pendingRender = true
	p.stats.Decoded++

	// under the lock: Stop either sees no request or one it can cancel
	requested := p.scheduler.Request(func() {
		p.paint(epoch)
	})
	if !requested {
		// no paint will come for this frame, so stop waiting on one
		p.pendingRender = false
	}
	p.locker.Unlock()

	if !requested {
		l.Warn().Println("paint request refused, frame kept for the next paint")
	}
}

func (p *Pipeline) paint(epoch uint64) {
	p.locker.Lock()
	defer p.locker.Unlock()

	if epoch != p.epoch || !p.pendingRender || p.current == nil {
		return
	}

	size := p.current.Size()
	if p.surface.Size() != size {
		p.surface.Resize(size.X, size.Y)
	}
	p.surface.Paint(p.current)

	p.pendingRender = false
	p.stats.Painted++
}
