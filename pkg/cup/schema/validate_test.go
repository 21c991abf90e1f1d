package schema

import (
	"errors"
	"testing"

	"github.com/urmzd/glowcup/pkg/cup"
)

func TestDecodeJSON_HexColor(t *testing.T) {
	v := NewValidator()

	req, err := v.DecodeJSON(cup.CommandSetColor, []byte(`{"hex": "#FF8000", "targets": ["AA:BB:CC:DD:EE:01"]}`))
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if req.Command.Color != (cup.Color{R: 255, G: 128, B: 0}) {
		t.Errorf("unexpected color %v", req.Command.Color)
	}
	if len(req.Targets) != 1 || req.Targets[0] != "AA:BB:CC:DD:EE:01" {
		t.Errorf("unexpected targets %v", req.Targets)
	}
}

func TestDecodeJSON_RGBColor(t *testing.T) {
	v := NewValidator()

	req, err := v.DecodeJSON(cup.CommandSetColor, []byte(`{"r": 0, "g": 0, "b": 255}`))
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if req.Command.Kind != cup.CommandSetColor || req.Command.Color.B != 255 {
		t.Errorf("unexpected command %+v", req.Command)
	}
	if req.Targets != nil {
		t.Errorf("expected no targets, got %v", req.Targets)
	}
}

func TestDecodeJSON_ColorNeedsExactlyOneForm(t *testing.T) {
	v := NewValidator()

	for _, body := range []string{
		`{}`,
		`{"r": 1, "g": 2}`,
		`{"hex": "#000000", "r": 1, "g": 2, "b": 3}`,
		`{"hex": "red"}`,
	} {
		if _, err := v.DecodeJSON(cup.CommandSetColor, []byte(body)); !errors.Is(err, cup.ErrInvalidCommand) {
			t.Errorf("%s: expected ErrInvalidCommand, got %v", body, err)
		}
	}
}

func TestDecodeJSON_ChannelOutOfRange(t *testing.T) {
	v := NewValidator()

	_, err := v.DecodeJSON(cup.CommandSetColor, []byte(`{"r": 256, "g": 0, "b": 0}`))
	if !errors.Is(err, cup.ErrInvalidCommand) {
		t.Errorf("expected ErrInvalidCommand, got %v", err)
	}
}

func TestDecodeJSON_Brightness(t *testing.T) {
	v := NewValidator()

	req, err := v.DecodeJSON(cup.CommandSetBrightness, []byte(`{"level": 40}`))
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if req.Command.Brightness != 40 {
		t.Errorf("expected brightness 40, got %d", req.Command.Brightness)
	}

	if _, err := v.DecodeJSON(cup.CommandSetBrightness, []byte(`{"level": 101}`)); err == nil {
		t.Error("expected validation error for out-of-range brightness")
	}
	if _, err := v.DecodeJSON(cup.CommandSetBrightness, []byte(`{"level": 2.5}`)); err == nil {
		t.Error("expected validation error for fractional brightness")
	}
}

func TestDecode_ModeFromToolArguments(t *testing.T) {
	v := NewValidator()

	req, err := v.Decode(cup.CommandSetMode, map[string]any{"mode": "strobe"})
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if req.Command.Mode != cup.ModeStrobe {
		t.Errorf("expected strobe, got %v", req.Command.Mode)
	}

	if _, err := v.Decode(cup.CommandSetMode, map[string]any{"mode": "disco"}); err == nil {
		t.Error("expected validation error for invalid enum value")
	}
}

func TestDecode_BatteryAcceptsEmptyBody(t *testing.T) {
	v := NewValidator()

	req, err := v.DecodeJSON(cup.CommandQueryBattery, nil)
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if req.Command.Kind != cup.CommandQueryBattery {
		t.Errorf("unexpected kind %q", req.Command.Kind)
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(cup.CommandSetBrightness, map[string]any{
		"level":   float64(10),
		"unknown": "value",
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	v := NewValidator()

	if err := v.Validate("explode", map[string]any{}); !errors.Is(err, cup.ErrInvalidCommand) {
		t.Errorf("expected ErrInvalidCommand, got %v", err)
	}
}
