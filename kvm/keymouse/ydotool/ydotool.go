package ydotool

import (
	"context"
	"fmt"
	"github.com/allape/rein/kvm/command"
	"github.com/allape/rein/kvm/keymouse"
	"strconv"
)

const DefaultSubcommand = "mousemove"

// Driver moves the pointer through the resolved executable. Offsets pass through unchanged.
type Driver struct {
	keymouse.Driver

	Resolver   *Resolver
	Subcommand string
}

func (d *Driver) Open() error {
	if _, ok := d.Resolver.Resolve(context.Background()); !ok {
		l.Warn().Println(d.Resolver.Executable(), "is not available yet, pointer moves fall back")
	}
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Inject(ctx context.Context, cmd command.Command) error {
	if cmd.Kind != command.Move {
		return keymouse.ErrUnsupported
	}

	ok := d.Resolver.Execute(
		ctx,
		d.Subcommand,
		"-x", strconv.FormatFloat(cmd.DX, 'f', -1, 64),
		"-y", strconv.FormatFloat(cmd.DY, 'f', -1, 64),
	)
	if !ok {
		return fmt.Errorf("%w: %s", keymouse.ErrUnavailable, d.Resolver.Availability())
	}

	return nil
}

func New(resolver *Resolver, subcommand string) *Driver {
	if subcommand == "" {
		subcommand = DefaultSubcommand
	}
	return &Driver{
		Resolver:   resolver,
		Subcommand: subcommand,
	}
}
