// Package command defines the values exchanged between the handheld viewer and the host:
// input commands and the mirror control signals.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalid = errors.New("invalid command")

type Kind string

const (
	Move  Kind = "move"
	Click Kind = "click"
	Key   Kind = "key"
	Text  Kind = "text"
	Combo Kind = "combo"

	StartMirror Kind = "start-mirror"
	StopMirror  Kind = "stop-mirror"
)

type Button string

const (
	LeftButton   Button = "left"
	RightButton  Button = "right"
	MiddleButton Button = "middle"
)

// Command is a tagged variant, only the fields of its Kind are meaningful.
type Command struct {
	Kind Kind

	// DX and DY are relative offsets, fractional when the client scales them
	DX float64
	DY float64

	Button  Button
	Pressed bool

	Key  string
	Text string
	Keys []string
}

func NewMove(dx, dy float64) Command {
	return Command{Kind: Move, DX: dx, DY: dy}
}

func NewClick(button Button, pressed bool) Command {
	return Command{Kind: Click, Button: button, Pressed: pressed}
}

func NewKey(key string) Command {
	return Command{Kind: Key, Key: key}
}

func NewText(text string) Command {
	return Command{Kind: Text, Text: text}
}

func NewCombo(keys []string) Command {
	return Command{Kind: Combo, Keys: append([]string(nil), keys...)}
}

func NewControl(kind Kind) Command {
	return Command{Kind: kind}
}

func (c Command) IsControl() bool {
	return c.Kind == StartMirror || c.Kind == StopMirror
}

func (c Command) Validate() error {
	switch c.Kind {
	case Move:
		if !finite(c.DX) || !finite(c.DY) {
			return fmt.Errorf("%w: move offsets must be finite", ErrInvalid)
		}
	case StartMirror, StopMirror:
		return nil
	case Click:
		switch c.Button {
		case LeftButton, RightButton, MiddleButton:
			return nil
		}
		return fmt.Errorf("%w: unknown button %q", ErrInvalid, c.Button)
	case Key:
		if c.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalid)
		}
	case Text:
		if c.Text == "" {
			return fmt.Errorf("%w: empty text", ErrInvalid)
		}
	case Combo:
		if len(c.Keys) == 0 {
			return fmt.Errorf("%w: empty combo", ErrInvalid)
		}
		for _, k := range c.Keys {
			if k == "" {
				return fmt.Errorf("%w: empty combo key", ErrInvalid)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, c.Kind)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (c Command) String() string {
	switch c.Kind {
	case Move:
		return fmt.Sprintf("move(%g,%g)", c.DX, c.DY)
	case Click:
		return fmt.Sprintf("click(%s,%v)", c.Button, c.Pressed)
	case Key:
		return fmt.Sprintf("key(%s)", c.Key)
	case Text:
		return fmt.Sprintf("text(%q)", c.Text)
	case Combo:
		return fmt.Sprintf("combo(%v)", c.Keys)
	}
	return string(c.Kind)
}

type moveMessage struct {
	Type Kind    `json:"type"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

type clickMessage struct {
	Type   Kind   `json:"type"`
	Button Button `json:"button"`
	Press  bool   `json:"press"`
}

type keyMessage struct {
	Type Kind   `json:"type"`
	Key  string `json:"key"`
}

type textMessage struct {
	Type Kind   `json:"type"`
	Text string `json:"text"`
}

type comboMessage struct {
	Type Kind     `json:"type"`
	Keys []string `json:"keys"`
}

type controlMessage struct {
	Type Kind `json:"type"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Move:
		return json.Marshal(moveMessage{Type: c.Kind, DX: c.DX, DY: c.DY})
	case Click:
		return json.Marshal(clickMessage{Type: c.Kind, Button: c.Button, Press: c.Pressed})
	case Key:
		return json.Marshal(keyMessage{Type: c.Kind, Key: c.Key})
	case Text:
		return json.Marshal(textMessage{Type: c.Kind, Text: c.Text})
	case Combo:
		return json.Marshal(comboMessage{Type: c.Kind, Keys: c.Keys})
	case StartMirror, StopMirror:
		return json.Marshal(controlMessage{Type: c.Kind})
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalid, c.Kind)
}

type message struct {
	Type   Kind     `json:"type"`
	DX     float64  `json:"dx"`
	DY     float64  `json:"dy"`
	Button Button   `json:"button"`
	Press  bool     `json:"press"`
	Key    string   `json:"key"`
	Text   string   `json:"text"`
	Keys   []string `json:"keys"`
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var m message
	err := json.Unmarshal(data, &m)
	if err != nil {
		return err
	}

	*c = Command{
		Kind:    m.Type,
		DX:      m.DX,
		DY:      m.DY,
		Button:  m.Button,
		Pressed: m.Press,
		Key:     m.Key,
		Text:    m.Text,
		Keys:    m.Keys,
	}

	return nil
}

// Decode parses and validates one message from the wire.
func Decode(data []byte) (Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	err = c.Validate()
	if err != nil {
		return Command{}, err
	}
	return c, nil
}

func Encode(c Command) ([]byte, error) {
	err := c.Validate()
	if err != nil {
		return nil, err
	}
	return json.Marshal(c)
}
