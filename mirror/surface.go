package mirror

import (
	"golang.org/x/image/draw"
	"image"
	"image/jpeg"
	"io"
	"sync"
)

// Surface is where the pipeline paints the current frame.
type Surface interface {
	Size() image.Point
	Resize(width, height int)
	Paint(frame *Frame)
}

// Canvas is an in-memory Surface. It keeps its own copy of the last painted
// frame so readers never touch a frame the pipeline may release.
type Canvas struct {
	locker sync.Locker
	img    *image.RGBA
	paints uint64
}

func NewCanvas() *Canvas {
	return &Canvas{
		locker: &sync.Mutex{},
		img:    image.NewRGBA(image.Rect(0, 0, 0, 0)),
	}
}

func (c *Canvas) Size() image.Point {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.img.Bounds().Size()
}

func (c *Canvas) Resize(width, height int) {
	c.locker.Lock()
	defer c.locker.Unlock()
	l.Verbose().Println("resize canvas to", width, "x", height)
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (c *Canvas) Paint(frame *Frame) {
	c.locker.Lock()
	defer c.locker.Unlock()
	draw.Copy(c.img, image.Point{}, frame.Image, frame.Image.Bounds(), draw.Src, nil)
	c.paints++
}

func (c *Canvas) Paints() uint64 {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.paints
}

// Snapshot returns a copy of the canvas, scaled to fit within maxWidth when it is wider.
func (c *Canvas) Snapshot(maxWidth int) image.Image {
	c.locker.Lock()
	defer c.locker.Unlock()

	bounds := c.img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		dst := image.NewRGBA(bounds)
		copy(dst.Pix, c.img.Pix)
		return dst
	}

	height := bounds.Dy() * maxWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), c.img, bounds, draw.Src, nil)
	return dst
}

func (c *Canvas) EncodeJPEG(w io.Writer, maxWidth, quality int) error {
	return jpeg.Encode(w, c.Snapshot(maxWidth), &jpeg.Options{Quality: quality})
}
