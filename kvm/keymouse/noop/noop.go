package noop

import (
	"context"
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/command"
	"github.com/allape/rein/kvm/keymouse"
	"sync/atomic"
)

var l = gogger.New("kvm.keymouse.noop")

// Driver accepts every command and drops it.
type Driver struct {
	keymouse.Driver

	dropped atomic.Uint64
}

func (d *Driver) Open() error {
	l.Warn().Println("commands reaching the noop input driver are dropped")
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Inject(_ context.Context, cmd command.Command) error {
	d.dropped.Add(1)
	l.Verbose().Println("drop", cmd)
	return nil
}

func (d *Driver) Dropped() uint64 {
	return d.dropped.Load()
}

func New() *Driver {
	return &Driver{}
}
