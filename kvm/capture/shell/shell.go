package shell

import (
	"bytes"
	"errors"
	"github.com/allape/gogger"
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/capture"
	"io"
	"os"
	"sync"
	"time"
)

var l = gogger.New("kvm.capture.shell")

const DefaultReadyTimeout = 10 * time.Second

var (
	JPEGStartMarker = []byte{0xff, 0xd8}
	JPEGEndMarker   = []byte{0xff, 0xd9}
)

// Splitter cuts a byte stream into the frames delimited by StartMarker and EndMarker.
// Bytes outside a frame are skipped.
type Splitter struct {
	StartMarker []byte
	EndMarker   []byte

	started bool
	frame   []byte
}

func (s *Splitter) Feed(seg []byte, emit func(frame []byte)) {
	for len(seg) > 0 {
		if !s.started {
			// s.frame carries the tail of the previous read, which may be half a start marker
			buf := append(s.frame, seg...)
			index := bytes.Index(buf, s.StartMarker)
			if index == -1 {
				keep := len(s.StartMarker) - 1
				if keep > len(buf) {
					keep = len(buf)
				}
				s.frame = append([]byte(nil), buf[len(buf)-keep:]...)
				return
			}
			s.started = true
			s.frame = nil
			seg = buf[index:]
		}

		// the end marker may straddle two reads
		prevLen := len(s.frame)
		from := prevLen - len(s.EndMarker) + 1
		if from < 0 {
			from = 0
		}
		s.frame = append(s.frame, seg...)

		index := bytes.Index(s.frame[from:], s.EndMarker)
		if index == -1 {
			return
		}

		end := from + index + len(s.EndMarker)
		frame := s.frame[:end:end]
		seg = seg[end-prevLen:]
		s.started = false
		s.frame = nil
		emit(frame)
	}
}

// Driver runs a command that writes an MJPEG stream to stdout, e.g. ffmpeg with "-f mjpeg -",
// and serves the most recent complete frame.
type Driver struct {
	capture.Driver

	src config.ShellCommand

	process *os.Process
	locker  sync.Locker

	frameBuffer  []byte
	bufferLocker sync.Locker
	frameSeq     uint64
	gotFrameSeq  uint64

	FrameRate    float64
	ReadyTimeout time.Duration
	StartMarker  []byte
	EndMarker    []byte
}

func (d *Driver) Open() error {
	d.locker.Lock()
	defer d.locker.Unlock()

	if d.process != nil {
		return nil
	}

	cmd, err := d.src.ToCommand()
	if err != nil {
		return err
	} else if cmd == nil {
		return errors.New("command is nil")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	readyChan := make(chan struct{}, 1)
	exitChan := make(chan struct{})

	go func() {
		defer close(exitChan)

		splitter := &Splitter{StartMarker: d.StartMarker, EndMarker: d.EndMarker}
		buf := make([]byte, 32*1024)

		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				splitter.Feed(buf[:n], d.setFrame(readyChan))
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					l.Verbose().Println(err)
				}
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				l.Verbose().Print(string(buf[:n]))
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					l.Error().Println(err)
				}
				return
			}
		}
	}()

	l.Verbose().Println(cmd.Path, cmd.Args)

	err = cmd.Start()
	if err != nil {
		return err
	}

	d.process = cmd.Process

	go func() {
		<-exitChan
		err := cmd.Wait()
		l.Warn().Println("capture command exited:", err)

		d.locker.Lock()
		if d.process == cmd.Process {
			d.process = nil
		}
		d.locker.Unlock()
	}()

	select {
	case <-readyChan:
		return nil
	case <-exitChan:
		d.process = nil
		return errors.New("capture command exited before the first frame")
	case <-time.After(d.ReadyTimeout):
		_ = d.process.Kill()
		d.process = nil
		return errors.New("timed out waiting for the first frame")
	}
}

func (d *Driver) setFrame(readyChan chan<- struct{}) func([]byte) {
	return func(frame []byte) {
		d.bufferLocker.Lock()
		d.frameBuffer = frame
		d.frameSeq++
		d.bufferLocker.Unlock()

		select {
		case readyChan <- struct{}{}:
		default:
		}
	}
}

func (d *Driver) Close() error {
	d.locker.Lock()
	defer d.locker.Unlock()

	if d.process == nil {
		return nil
	}

	err := d.process.Kill()
	if err != nil {
		return err
	}

	d.process = nil

	return nil
}

func (d *Driver) GetFrameRate() float64 {
	return d.FrameRate
}

func (d *Driver) GetFrame() ([]byte, capture.Changed, error) {
	d.bufferLocker.Lock()
	defer d.bufferLocker.Unlock()

	if d.frameBuffer == nil {
		return nil, false, nil
	}

	if d.frameSeq == d.gotFrameSeq {
		return d.frameBuffer, false, nil
	}

	d.gotFrameSeq = d.frameSeq

	return d.frameBuffer, true, nil
}

type Options struct {
	capture.Options
	ReadyTimeout time.Duration
}

func NewDriver(src config.ShellCommand, options *Options) capture.Driver {
	if options == nil {
		options = &Options{}
	}

	options.Defaults()
	if options.ReadyTimeout == 0 {
		options.ReadyTimeout = DefaultReadyTimeout
	}

	return &Driver{
		src: src,

		locker:       &sync.Mutex{},
		bufferLocker: &sync.Mutex{},

		FrameRate:    options.FrameRate,
		ReadyTimeout: options.ReadyTimeout,
		StartMarker:  JPEGStartMarker,
		EndMarker:    JPEGEndMarker,
	}
}
