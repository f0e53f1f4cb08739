package command

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"testing"
)

func TestEncodeWireShapes(t *testing.T) {
	cases := []struct {
		cmd  Command
		json string
	}{
		{NewMove(0, -3), `{"type":"move","dx":0,"dy":-3}`},
		{NewClick(LeftButton, true), `{"type":"click","button":"left","press":true}`},
		{NewKey("enter"), `{"type":"key","key":"enter"}`},
		{NewText("hello "), `{"type":"text","text":"hello "}`},
		{NewCombo([]string{"control", "c"}), `{"type":"combo","keys":["control","c"]}`},
		{NewControl(StartMirror), `{"type":"start-mirror"}`},
		{NewControl(StopMirror), `{"type":"stop-mirror"}`},
	}

	for _, c := range cases {
		bs, err := Encode(c.cmd)
		require.NoError(t, err, c.cmd.String())
		assert.JSONEq(t, c.json, string(bs))

		decoded, err := Decode([]byte(c.json))
		require.NoError(t, err, c.json)
		assert.Equal(t, c.cmd, decoded)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"warp"}`,
		`{"type":"key","key":""}`,
		`{"type":"text"}`,
		`{"type":"combo","keys":[]}`,
		`{"type":"combo","keys":["a",""]}`,
		`{"type":"click","button":"thumb","press":true}`,
	} {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}
}

func TestDecodeFractionalMove(t *testing.T) {
	c, err := Decode([]byte(`{"type":"move","dx":1.5,"dy":-2.25}`))
	require.NoError(t, err)
	assert.Equal(t, NewMove(1.5, -2.25), c)
	assert.Equal(t, "move(1.5,-2.25)", c.String())

	raw, err := Encode(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"move","dx":1.5,"dy":-2.25}`, string(raw))

	_, err = Decode([]byte(`{"type":"move","dx":"1","dy":0}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEncodeRejectsNonFiniteMove(t *testing.T) {
	_, err := Encode(NewMove(math.Inf(1), 0))
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Encode(NewMove(0, math.NaN()))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewComboCopiesKeys(t *testing.T) {
	keys := []string{"a", "b"}
	c := NewCombo(keys)
	keys[0] = "z"
	assert.Equal(t, []string{"a", "b"}, c.Keys)
}

func TestIsControl(t *testing.T) {
	assert.True(t, NewControl(StartMirror).IsControl())
	assert.False(t, NewMove(1, 1).IsControl())
}
