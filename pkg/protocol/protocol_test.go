package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/glowcup/pkg/cup"
)

func TestEncodeColor(t *testing.T) {
	frame, err := EncodeColor(cup.Color{R: 255, G: 0, B: 0x80})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xFF, 0x00, 0x80}, frame)
}

func TestEncodeColor_OutOfRange(t *testing.T) {
	for _, c := range []cup.Color{{R: 256}, {G: -1}, {B: 1000}} {
		_, err := EncodeColor(c)
		assert.ErrorIs(t, err, cup.ErrInvalidCommand, "color %+v", c)
	}
}

func TestEncodeBrightness(t *testing.T) {
	for _, level := range []int{0, 1, 50, 100} {
		frame, err := EncodeBrightness(level)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x02, byte(level)}, frame)
	}
}

func TestEncodeBrightness_OutOfRange(t *testing.T) {
	for _, level := range []int{-5, -1, 101, 255} {
		frame, err := EncodeBrightness(level)
		assert.Nil(t, frame)
		assert.ErrorIs(t, err, cup.ErrInvalidCommand, "level %d", level)
	}
}

func TestEncodeMode(t *testing.T) {
	cases := map[cup.Mode]byte{
		cup.ModeStatic:  0x00,
		cup.ModePulse:   0x01,
		cup.ModeStrobe:  0x02,
		cup.ModeRainbow: 0x03,
	}
	for mode, code := range cases {
		frame, err := EncodeMode(mode)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x03, code}, frame, mode.String())
	}

	_, err := EncodeMode(cup.Mode(9))
	assert.ErrorIs(t, err, cup.ErrInvalidCommand)
}

func TestEncodeBatteryQuery(t *testing.T) {
	assert.Equal(t, []byte{0x04}, EncodeBatteryQuery())
}

func TestEncode_DispatchesOnKind(t *testing.T) {
	frame, err := Encode(cup.SetBrightness(42))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 42}, frame)

	frame, err = Encode(cup.QueryBattery())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04}, frame)

	_, err = Encode(cup.Command{Kind: "explode"})
	assert.ErrorIs(t, err, cup.ErrInvalidCommand)
}

func TestDecodeBatteryNotification(t *testing.T) {
	level, err := DecodeBatteryNotification([]byte{0x81, 73})
	require.NoError(t, err)
	assert.Equal(t, 73, level)

	level, err = DecodeBatteryNotification([]byte{0x81, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, cup.BatteryUnknown, level)
}

func TestDecodeBatteryNotification_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"nil":          nil,
		"empty":        {},
		"short":        {0x81},
		"long":         {0x81, 10, 0},
		"wrong id":     {0x01, 50},
		"out of range": {0x81, 101},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			level, err := DecodeBatteryNotification(payload)
			assert.True(t, errors.Is(err, cup.ErrProtocol))
			assert.Equal(t, cup.BatteryUnknown, level)
		})
	}
}

func TestIsBatteryNotification(t *testing.T) {
	assert.True(t, IsBatteryNotification([]byte{0x81, 1}))
	assert.False(t, IsBatteryNotification([]byte{0x01}))
	assert.False(t, IsBatteryNotification(nil))
}
