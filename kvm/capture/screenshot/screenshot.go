package screenshot

import (
	"errors"
	"fmt"
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/capture"
	"github.com/allape/rein/kvm/codec"
	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"
	"image"
	"sync"
	"time"
)

var l = gogger.New("kvm.capture.screenshot")

var ErrNoDisplay = errors.New("no active display")

// Driver grabs one display of the host, scales it down to fit Width x Height and encodes it.
type Driver struct {
	capture.Driver

	display int
	codec   codec.Codec

	locker    sync.Locker
	bounds    image.Rectangle
	lastFrame []byte
	lastTime  time.Time

	Width     int
	Height    int
	FrameRate float64
}

func (d *Driver) Open() error {
	d.locker.Lock()
	defer d.locker.Unlock()

	count := screenshot.NumActiveDisplays()
	if count == 0 {
		return ErrNoDisplay
	}
	if d.display < 0 || d.display >= count {
		return fmt.Errorf("display %d out of range, %d active", d.display, count)
	}

	d.bounds = screenshot.GetDisplayBounds(d.display)
	l.Info().Printf("capturing display %d at %v", d.display, d.bounds)

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

	if d.bounds.Empty() {
		return nil, false, ErrNoDisplay
	}

	now := time.Now()
	if d.lastFrame != nil && now.Sub(d.lastTime) < time.Duration(float64(time.Second)/d.FrameRate) {
		return d.lastFrame, false, nil
	}

	img, err := screenshot.CaptureRect(d.bounds)
	if err != nil {
		return nil, false, err
	}

	frame, err := d.codec.Encode(Fit(img, d.Width, d.Height))
	if err != nil {
		return nil, false, err
	}

	d.lastTime = now
	d.lastFrame = frame

	return frame, true, nil
}

// Fit scales img down to fit in width x height, keeping the aspect ratio.
// Images that already fit are returned as is.
func Fit(img image.Image, width, height int) image.Image {
	size := img.Bounds().Size()
	if width <= 0 || height <= 0 || (size.X <= width && size.Y <= height) {
		return img
	}

	scaled := image.Pt(width, size.Y*width/size.X)
	if scaled.Y > height {
		scaled = image.Pt(size.X*height/size.Y, height)
	}
	if scaled.X < 1 {
		scaled.X = 1
	}
	if scaled.Y < 1 {
		scaled.Y = 1
	}

	dst := image.NewRGBA(image.Rectangle{Max: scaled})
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

type Options struct {
	capture.Options
	Display int
	Codec   codec.Codec
}

func NewDriver(options *Options) capture.Driver {
	if options == nil {
		options = &Options{}
	}

	options.Defaults()
	if options.Codec == nil {
		options.Codec = &codec.JPEGEncoder{}
	}

	return &Driver{
		display: options.Display,
		codec:   options.Codec,
		locker:  &sync.Mutex{},

		Width:     options.Width,
		Height:    options.Height,
		FrameRate: options.FrameRate,
	}
}
