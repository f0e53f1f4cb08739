package main

import (
	"context"
	"errors"
	"github.com/allape/rein/combo"
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

type recorder struct {
	sent   []command.Command
	combos [][]string
}

func (r *recorder) Send(cmd command.Command) error {
	r.sent = append(r.sent, cmd)
	return nil
}

func (r *recorder) SendCombo(keys []string) error {
	r.combos = append(r.combos, keys)
	return nil
}

func newConsole(sensitivity float64) (*Console, *recorder, *[]time.Duration) {
	r := &recorder{}
	settings := config.DefaultSettings()
	settings.Sensitivity = sensitivity

	c := NewConsole(combo.New(r), r, func() config.Settings { return settings })
	var slept []time.Duration
	c.sleep = func(d time.Duration) {
		slept = append(slept, d)
	}
	return c, r, &slept
}

func TestConsoleText(t *testing.T) {
	c, r, _ := newConsole(1)

	require.NoError(t, c.Handle("hello"))
	require.NoError(t, c.Handle("x"))
	require.NoError(t, c.Handle("::wq"))
	require.NoError(t, c.Handle(""))

	assert.Equal(t, []command.Command{
		command.NewText("hello "),
		command.NewText("x"),
		command.NewText(":wq "),
	}, r.sent)
}

func TestConsoleCombo(t *testing.T) {
	c, r, _ := newConsole(1)

	for _, line := range []string{":toggle", ":key Control", "c", ":toggle", ":extra alt"} {
		require.NoError(t, c.Handle(line))
	}

	assert.Equal(t, combo.Hold, c.Machine.Mode())
	assert.Equal(t, [][]string{{"control", "c", "alt"}}, r.combos)
	assert.Equal(t, "control + c + alt", c.Machine.BufferText())

	require.NoError(t, c.Handle(":bs"))
	assert.Equal(t, []string{"control", "c"}, c.Machine.Buffer())

	require.NoError(t, c.Handle(":esc"))
	assert.Equal(t, combo.Release, c.Machine.Mode())
	assert.Empty(t, r.sent)
}

func TestConsoleKeysInRelease(t *testing.T) {
	c, r, _ := newConsole(1)

	require.NoError(t, c.Handle(":enter"))
	require.NoError(t, c.Handle(":bs"))
	require.NoError(t, c.Handle(":key ArrowUp"))
	require.NoError(t, c.Handle(":compose 你好"))

	assert.Equal(t, []command.Command{
		command.NewKey("enter"),
		command.NewKey("backspace"),
		command.NewKey("arrowup"),
		command.NewText("你好 "),
	}, r.sent)
}

func TestConsoleMoveScalesBySensitivity(t *testing.T) {
	c, r, _ := newConsole(1.5)

	require.NoError(t, c.Handle(":move 4 -2"))
	require.NoError(t, c.Handle(":move 0.5 0.5"))
	require.NoError(t, c.Handle(":move 0 0"))

	assert.Equal(t, []command.Command{
		command.NewMove(6, -3),
		command.NewMove(0.75, 0.75),
	}, r.sent)

	assert.Error(t, c.Handle(":move 1"))
	assert.Error(t, c.Handle(":move a 1"))
	assert.Error(t, c.Handle(":move NaN 1"))
}

func TestConsoleClick(t *testing.T) {
	c, r, slept := newConsole(1)

	require.NoError(t, c.Handle(":click"))
	require.NoError(t, c.Handle(":click Right"))

	assert.Equal(t, []command.Command{
		command.NewClick(command.LeftButton, true),
		command.NewClick(command.LeftButton, false),
		command.NewClick(command.RightButton, true),
		command.NewClick(command.RightButton, false),
	}, r.sent)
	assert.Equal(t, []time.Duration{DefaultClickDelay, DefaultClickDelay}, *slept)
}

func TestConsoleUnknownDirective(t *testing.T) {
	c, _, _ := newConsole(1)
	assert.True(t, errors.Is(c.Handle(":teleport"), ErrUnknownDirective))
}

func TestConsoleRun(t *testing.T) {
	c, r, _ := newConsole(1)

	err := c.Run(context.Background(), strings.NewReader("a\n:toggle\n:key shift\n:toggle\n:key tab\n"))
	require.NoError(t, err)

	assert.Equal(t, []command.Command{command.NewText("a")}, r.sent)
	assert.Equal(t, [][]string{{"shift", "tab"}}, r.combos)
}
