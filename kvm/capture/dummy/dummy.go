package dummy

import (
	"github.com/allape/rein/helper/placeholder"
	"github.com/allape/rein/kvm/capture"
	"github.com/allape/rein/kvm/codec"
	"image/color"
	"sync"
	"time"
)

// Driver renders a text card with the current time, for running without a real display.
type Driver struct {
	capture.Driver

	src   string
	codec codec.Codec

	locker    sync.Locker
	lastFrame []byte
	lastTime  time.Time
	now       func() time.Time

	Width     int
	Height    int
	FrameRate float64
}

func (d *Driver) Open() error {
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) GetFrameRate() float64 {
	return d.FrameRate
}

func (d *Driver) GetFrame() ([]byte, capture.Changed, error) {
	d.locker.Lock()
	defer d.locker.Unlock()

	now := d.now()
	if d.lastFrame != nil && now.Sub(d.lastTime) < time.Duration(float64(time.Second)/d.FrameRate) {
		return d.lastFrame, false, nil
	}

	img, err := placeholder.CreatePlaceholder(
		d.Width, d.Height,
		color.RGBA{A: 255},
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		d.src,
		true,
	)
	if err != nil {
		return nil, false, err
	}

	frame, err := d.codec.Encode(img)
	if err != nil {
		return nil, false, err
	}

	d.lastTime = now
	d.lastFrame = frame

	return frame, true, nil
}

type Options struct {
	capture.Options
	Codec codec.Codec
}

func NewDriver(src string, options *Options) capture.Driver {
	if options == nil {
		options = &Options{}
	}

	options.Defaults()
	if options.Codec == nil {
		options.Codec = &codec.JPEGEncoder{}
	}

	return &Driver{
		src:    src,
		codec:  options.Codec,
		locker: &sync.Mutex{},
		now:    time.Now,

		Width:     options.Width,
		Height:    options.Height,
		FrameRate: options.FrameRate,
	}
}
