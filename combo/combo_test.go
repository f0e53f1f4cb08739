package combo

import (
	"errors"
	"github.com/allape/rein/kvm/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type recorder struct {
	sent   []command.Command
	combos [][]string
	err    error
}

func (r *recorder) Send(c command.Command) error {
	r.sent = append(r.sent, c)
	return r.err
}

func (r *recorder) SendCombo(keys []string) error {
	r.combos = append(r.combos, keys)
	return r.err
}

func TestComboSequence(t *testing.T) {
	r := &recorder{}
	m := New(r)
	require.Equal(t, Release, m.Mode())

	m.Toggle()
	assert.Equal(t, Active, m.Mode())
	assert.Empty(t, m.Buffer())

	m.Input("a")
	assert.Equal(t, Active, m.Mode())
	assert.Equal(t, []string{"a"}, m.Buffer())
	assert.Empty(t, r.combos)

	m.Toggle()
	assert.Equal(t, Hold, m.Mode())

	m.Input("b")
	require.Len(t, r.combos, 1)
	assert.Equal(t, []string{"a", "b"}, r.combos[0])
	assert.Equal(t, []string{"a", "b"}, m.Buffer())
	assert.Equal(t, Hold, m.Mode())

	m.KeyDown("Escape")
	assert.Equal(t, Release, m.Mode())
	assert.Empty(t, m.Buffer())
	assert.Empty(t, r.sent)
}

func TestToggleActiveWithEmptyBufferReleases(t *testing.T) {
	m := New(&recorder{})
	m.Toggle()
	m.Toggle()
	assert.Equal(t, Release, m.Mode())
}

func TestToggleHoldCancelsWithoutSending(t *testing.T) {
	r := &recorder{}
	m := New(r)
	m.Toggle()
	m.ExtraKey("control")
	m.Toggle()
	require.Equal(t, Hold, m.Mode())

	m.Toggle()
	assert.Equal(t, Release, m.Mode())
	assert.Empty(t, m.Buffer())
	assert.Empty(t, r.combos)
	assert.Empty(t, r.sent)
}

func TestHoldReEmitsCumulatively(t *testing.T) {
	r := &recorder{}
	m := New(r)
	m.Toggle()
	m.ExtraKey("control")
	m.Toggle()

	m.Input("c")
	m.Input("v")

	require.Len(t, r.combos, 2)
	assert.Equal(t, []string{"control", "c"}, r.combos[0])
	assert.Equal(t, []string{"control", "c", "v"}, r.combos[1])
}

func TestEmittedComboIsACopy(t *testing.T) {
	r := &recorder{}
	m := New(r)
	m.Toggle()
	m.Input("a")
	m.Toggle()
	m.Input("b")
	m.KeyDown("Backspace")

	assert.Equal(t, []string{"a", "b"}, r.combos[0])
	assert.Equal(t, []string{"a"}, m.Buffer())
}

func TestBackspaceInModifierModes(t *testing.T) {
	r := &recorder{}
	m := New(r)
	m.Toggle()
	m.KeyDown("Backspace")
	assert.Equal(t, Active, m.Mode())
	assert.Empty(t, m.Buffer())

	m.Input("a")
	m.KeyDown("ArrowLeft")
	assert.Equal(t, []string{"a", "arrowleft"}, m.Buffer())
	assert.Equal(t, "a + arrowleft", m.BufferText())

	m.KeyDown("Backspace")
	assert.Equal(t, []string{"a"}, m.Buffer())
	assert.Equal(t, Active, m.Mode())
	assert.Empty(t, r.sent)
}

func TestReleaseDispatch(t *testing.T) {
	r := &recorder{}
	m := New(r)

	m.KeyDown("Backspace")
	m.KeyDown("Enter")
	m.KeyDown("ArrowUp")
	m.KeyDown("a")
	m.Input("x")
	m.Input("hello")
	m.ExtraKey("f5")

	assert.Equal(t, []command.Command{
		command.NewKey("backspace"),
		command.NewKey("enter"),
		command.NewKey("arrowup"),
		command.NewText("x"),
		command.NewText("hello "),
		command.NewKey("f5"),
	}, r.sent)
}

func TestRejectedTokens(t *testing.T) {
	r := &recorder{}
	m := New(r)

	m.KeyDown("Unidentified")
	m.Input("")
	m.ExtraKey("")
	m.CompositionEnd("")

	m.Toggle()
	m.KeyDown("Unidentified")
	m.Input("")
	m.ExtraKey("unidentified")

	assert.Empty(t, r.sent)
	assert.Empty(t, m.Buffer())
}

func TestCompositionIsOneToken(t *testing.T) {
	r := &recorder{}
	m := New(r)

	m.CompositionStart()
	m.Input("ni")
	m.Input("nih")
	assert.True(t, m.Composing())
	assert.Empty(t, r.sent)

	m.CompositionEnd("你好")
	assert.False(t, m.Composing())
	assert.Equal(t, []command.Command{command.NewText("你好 ")}, r.sent)

	m.Toggle()
	m.CompositionStart()
	m.Input("x")
	m.CompositionEnd("你好")
	assert.Equal(t, []string{"你好"}, m.Buffer())
}

func TestSingleRuneTextHasNoDelimiter(t *testing.T) {
	r := &recorder{}
	m := New(r)
	m.CompositionEnd("好")
	assert.Equal(t, []command.Command{command.NewText("好")}, r.sent)
}

func TestSendErrorsAreSwallowed(t *testing.T) {
	r := &recorder{err: errors.New("closed")}
	m := New(r)
	m.Input("a")
	m.Toggle()
	m.Input("b")
	m.Toggle()
	m.Input("c")
	assert.Len(t, r.sent, 1)
	assert.Len(t, r.combos, 1)
}
