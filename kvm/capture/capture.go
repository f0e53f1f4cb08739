package capture

type (
	Changed bool
)

// Driver produces encoded frames of the host screen.
type Driver interface {
	Open() error
	Close() error

	GetFrameRate() float64
	// GetFrame returns the latest encoded frame. Changed is false when it is the same
	// frame the previous call returned.
	GetFrame() ([]byte, Changed, error)
}

type Options struct {
	Width     int
	Height    int
	FrameRate float64
}

func (o *Options) Defaults() {
	if o.Width == 0 {
		o.Width = 1280
	}
	if o.Height == 0 {
		o.Height = 720
	}
	if o.FrameRate == 0 {
		o.FrameRate = 15
	}
}
