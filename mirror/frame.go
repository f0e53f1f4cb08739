package mirror

import (
	"bytes"
	"errors"
	"fmt"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
)

var ErrEmptyPayload = errors.New("empty frame payload")

// Frame is one decoded bitmap of the host screen.
// Its pixels are owned by whoever holds it until Release is called.
type Frame struct {
	Image *image.RGBA

	locker   sync.Locker
	released bool
	recycle  func([]uint8)
}

func NewFrame(img *image.RGBA, recycle func([]uint8)) *Frame {
	return &Frame{
		Image:   img,
		locker:  &sync.Mutex{},
		recycle: recycle,
	}
}

func (f *Frame) Size() image.Point {
	return f.Image.Bounds().Size()
}

func (f *Frame) Released() bool {
	f.locker.Lock()
	defer f.locker.Unlock()
	return f.released
}

// Release hands the pixel buffer back. It is safe to call more than once.
func (f *Frame) Release() {
	f.locker.Lock()
	defer f.locker.Unlock()

	if f.released {
		return
	}
	f.released = true

	if f.recycle != nil && f.Image != nil {
		f.recycle(f.Image.Pix)
	}
	f.Image = nil
}

type Decoder interface {
	Decode(payload []byte) (*Frame, error)
}

// ImageDecoder decodes JPEG, PNG, WebP and BMP payloads into pooled RGBA buffers.
type ImageDecoder struct {
	pool sync.Pool
}

func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{}
}

func (d *ImageDecoder) Decode(payload []byte) (*Frame, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	src, format, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	l.Verbose().Println("decoded", format, "frame", src.Bounds().Size())

	bounds := src.Bounds()
	dst := d.alloc(bounds.Dx(), bounds.Dy())
	draw.Copy(dst, image.Point{}, src, bounds, draw.Src, nil)

	return NewFrame(dst, d.recycle), nil
}

func (d *ImageDecoder) alloc(width, height int) *image.RGBA {
	size := 4 * width * height
	if buf, ok := d.pool.Get().(*[]uint8); ok && cap(*buf) >= size {
		return &image.RGBA{
			Pix:    (*buf)[:size],
			Stride: 4 * width,
			Rect:   image.Rect(0, 0, width, height),
		}
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (d *ImageDecoder) recycle(pix []uint8) {
	d.pool.Put(&pix)
}
