package keymouse

import (
	"context"
	"errors"
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/command"
)

var l = gogger.New("kvm.keymouse")

var (
	// ErrUnavailable means the driver cannot inject right now, e.g. its executable is cooling down.
	ErrUnavailable = errors.New("input driver unavailable")
	// ErrUnsupported means the driver does not handle this kind of command.
	ErrUnsupported = errors.New("command not supported by input driver")
)

// Driver injects commands into the host's input system.
type Driver interface {
	Open() error
	Close() error
	Inject(ctx context.Context, cmd command.Command) error
}

// Fallback tries Primary first and hands the command to Secondary when Primary
// is unavailable or does not support it.
type Fallback struct {
	Primary   Driver
	Secondary Driver
}

func (f *Fallback) Open() error {
	return errors.Join(open(f.Primary), open(f.Secondary))
}

func (f *Fallback) Close() error {
	return errors.Join(closeDriver(f.Primary), closeDriver(f.Secondary))
}

func (f *Fallback) Inject(ctx context.Context, cmd command.Command) error {
	if f.Primary != nil {
		err := f.Primary.Inject(ctx, cmd)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrUnsupported) {
			return err
		}
		l.Verbose().Println(cmd, "falls back:", err)
	}

	if f.Secondary == nil {
		return ErrUnavailable
	}

	return f.Secondary.Inject(ctx, cmd)
}

func open(d Driver) error {
	if d == nil {
		return nil
	}
	return d.Open()
}

func closeDriver(d Driver) error {
	if d == nil {
		return nil
	}
	return d.Close()
}
