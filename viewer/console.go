package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/allape/rein/combo"
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/command"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DirectivePrefix   = ":"
	DefaultClickDelay = 50 * time.Millisecond
)

var ErrUnknownDirective = errors.New("unknown directive")

type Sender interface {
	Send(cmd command.Command) error
}

// Console turns stdin lines into input events.
//
// Plain lines are typed text. Lines starting with ":" are directives:
//
//	:toggle            modifier button
//	:esc, :bs, :enter  escape, backspace, enter
//	:key <name>        named key, e.g. ArrowLeft or Control
//	:extra <name>      on-screen extra key
//	:compose <text>    text committed by an input method
//	:move <dx> <dy>    relative pointer move, scaled by the sensitivity setting
//	:click [button]    press and release left, right or middle
//
// A leading "::" types a literal ":".
type Console struct {
	Machine    *combo.Machine
	Sender     Sender
	Settings   func() config.Settings
	ClickDelay time.Duration

	sleep func(time.Duration)
}

func NewConsole(machine *combo.Machine, sender Sender, settings func() config.Settings) *Console {
	return &Console{
		Machine:    machine,
		Sender:     sender,
		Settings:   settings,
		ClickDelay: DefaultClickDelay,
		sleep:      time.Sleep,
	}
}

func (c *Console) Handle(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, DirectivePrefix) {
		c.Machine.Input(line)
		return nil
	}
	if strings.HasPrefix(line, DirectivePrefix+DirectivePrefix) {
		c.Machine.Input(line[len(DirectivePrefix):])
		return nil
	}

	name, arg, _ := strings.Cut(line[len(DirectivePrefix):], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "toggle":
		c.Machine.Toggle()
	case "esc":
		c.Machine.KeyDown(combo.KeyEscape)
	case "bs":
		c.Machine.KeyDown(combo.KeyBackspace)
	case "enter":
		c.Machine.KeyDown(combo.KeyEnter)
	case "key":
		c.Machine.KeyDown(arg)
	case "extra":
		c.Machine.ExtraKey(arg)
	case "compose":
		c.Machine.CompositionStart()
		c.Machine.Input(arg)
		c.Machine.CompositionEnd(arg)
	case "move":
		return c.move(arg)
	case "click":
		return c.click(arg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDirective, name)
	}

	return nil
}

func (c *Console) move(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return fmt.Errorf("move needs dx and dy, got %q", arg)
	}

	dx, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("dx: %w", err)
	}
	dy, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("dy: %w", err)
	}

	sensitivity := c.Settings().Sensitivity
	x, y := dx*sensitivity, dy*sensitivity
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return fmt.Errorf("move offsets must be finite, got %q", arg)
	}
	if x == 0 && y == 0 {
		return nil
	}

	return c.Sender.Send(command.NewMove(x, y))
}

func (c *Console) click(arg string) error {
	button := command.LeftButton
	if arg != "" {
		button = command.Button(strings.ToLower(arg))
	}

	err := c.Sender.Send(command.NewClick(button, true))
	if err != nil {
		return err
	}
	c.sleep(c.ClickDelay)
	return c.Sender.Send(command.NewClick(button, false))
}

// Run handles lines from r until it ends or ctx is done.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Text()
		verboseLog.Println(">", line)

		err := c.Handle(line)
		if err != nil {
			log.Println(err)
		}

		if c.Machine.Mode() != combo.Release {
			log.Printf("[%s] %s", c.Machine.Mode(), c.Machine.BufferText())
		}
	}
	return scanner.Err()
}
