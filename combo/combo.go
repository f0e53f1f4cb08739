// Package combo assembles multi-key combinations from the key and text events of the
// handheld input surface and hands them to the connection as one atomic chord.
//
// The machine is not safe for concurrent use. Events are fed one at a time from the
// goroutine that owns the input surface.
package combo

import (
	"github.com/allape/gogger"
	"github.com/allape/rein/kvm/command"
	"strings"
	"unicode/utf8"
)

var l = gogger.New("combo")

type Mode int

const (
	Release Mode = iota
	Active
	Hold
)

func (m Mode) String() string {
	switch m {
	case Release:
		return "Release"
	case Active:
		return "Active"
	case Hold:
		return "Hold"
	}
	return "Unknown"
}

const (
	KeyBackspace    = "backspace"
	KeyEnter        = "enter"
	KeyEscape       = "escape"
	KeyUnidentified = "unidentified"

	// BufferSeparator joins buffered tokens for display.
	BufferSeparator = " + "
)

// Sender is the part of the connection manager the machine dispatches to.
type Sender interface {
	Send(c command.Command) error
	SendCombo(keys []string) error
}

type Machine struct {
	sender Sender

	mode      Mode
	buffer    []string
	composing bool
}

func New(sender Sender) *Machine {
	return &Machine{
		sender: sender,
		mode:   Release,
	}
}

func (m *Machine) Mode() Mode {
	return m.mode
}

func (m *Machine) Buffer() []string {
	return append([]string(nil), m.buffer...)
}

func (m *Machine) BufferText() string {
	return strings.Join(m.buffer, BufferSeparator)
}

func (m *Machine) Composing() bool {
	return m.composing
}

// Toggle is the modifier button.
func (m *Machine) Toggle() {
	switch m.mode {
	case Release:
		m.mode = Active
		m.buffer = nil
	case Active:
		if len(m.buffer) > 0 {
			m.mode = Hold
		} else {
			m.mode = Release
		}
	case Hold:
		m.mode = Release
		m.buffer = nil
	}
	l.Verbose().Println("mode:", m.mode, "buffer:", m.BufferText())
}

// KeyDown handles a named key from the hidden input, e.g. "Enter", "ArrowLeft" or "a".
// Single characters are ignored here because they arrive again through Input.
func (m *Machine) KeyDown(name string) {
	key := strings.ToLower(name)

	if m.mode != Release {
		switch key {
		case KeyBackspace:
			if len(m.buffer) > 0 {
				m.buffer = m.buffer[:len(m.buffer)-1]
			}
			return
		case KeyEscape:
			m.mode = Release
			m.buffer = nil
			return
		}
		if isNamedKey(key) {
			m.modifier(key)
		}
		return
	}

	switch {
	case key == KeyBackspace, key == KeyEnter:
		m.send(command.NewKey(key))
	case isNamedKey(key):
		m.send(command.NewKey(key))
	}
}

// Input handles text typed into the hidden input. It is ignored while a composition is open.
func (m *Machine) Input(text string) {
	if m.composing {
		return
	}
	m.token(text)
}

func (m *Machine) CompositionStart() {
	m.composing = true
}

// CompositionEnd commits the composed text as a single token, however many characters it has.
func (m *Machine) CompositionEnd(text string) {
	m.composing = false
	m.token(text)
}

// ExtraKey handles the on-screen extra keys (arrows, function keys, modifiers).
func (m *Machine) ExtraKey(name string) {
	if !valid(name) {
		return
	}
	if m.mode != Release {
		m.modifier(name)
		return
	}
	m.send(command.NewKey(name))
}

func (m *Machine) token(text string) {
	if !valid(text) {
		return
	}
	if m.mode != Release {
		m.modifier(text)
		return
	}
	m.sendText(text)
}

func (m *Machine) modifier(key string) {
	switch m.mode {
	case Active:
		m.buffer = append(m.buffer, key)
	case Hold:
		// the buffer keeps growing across repeated chords and is only cleared by toggle or escape
		m.buffer = append(m.buffer, key)
		err := m.sender.SendCombo(m.Buffer())
		if err != nil {
			l.Warn().Println("send combo:", err)
		}
	}
}

func (m *Machine) sendText(text string) {
	if utf8.RuneCountInString(text) > 1 {
		text += " "
	}
	m.send(command.NewText(text))
}

func (m *Machine) send(c command.Command) {
	err := m.sender.Send(c)
	if err != nil {
		l.Warn().Println("send", c.String()+":", err)
	}
}

func valid(token string) bool {
	return token != "" && strings.ToLower(token) != KeyUnidentified
}

func isNamedKey(key string) bool {
	return key != KeyUnidentified && utf8.RuneCountInString(key) > 1
}
