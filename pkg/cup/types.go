package cup

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ConnectionState is the lifecycle state of a single cup's BLE link.
type ConnectionState string

const (
	StateDiscovered    ConnectionState = "discovered"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateDisconnecting ConnectionState = "disconnecting"
	StateDisconnected  ConnectionState = "disconnected"
	StateFailed        ConnectionState = "failed"
)

// CanTransition reports whether the state machine allows moving from s to next.
// Any state may fail; Failed and Disconnected recover only through Connecting.
func (s ConnectionState) CanTransition(next ConnectionState) bool {
	if next == StateFailed {
		return true
	}
	switch s {
	case StateDiscovered, StateDisconnected, StateFailed:
		return next == StateConnecting
	case StateConnecting:
		return next == StateConnected
	case StateConnected:
		return next == StateDisconnecting
	case StateDisconnecting:
		return next == StateDisconnected
	default:
		return false
	}
}

// Color is an RGB value. Channels are ints so out-of-range input can be
// rejected instead of silently wrapping.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Valid reports whether every channel is within 0-255.
func (c Color) Valid() bool {
	return inByte(c.R) && inByte(c.G) && inByte(c.B)
}

// Hex formats the color as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R&0xFF, c.G&0xFF, c.B&0xFF)
}

func (c Color) String() string { return c.Hex() }

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: color %q must be 6 hex digits", ErrInvalidCommand, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: color %q: %v", ErrInvalidCommand, s, err)
	}
	return Color{R: int(v >> 16 & 0xFF), G: int(v >> 8 & 0xFF), B: int(v & 0xFF)}, nil
}

func inByte(v int) bool { return v >= 0 && v <= 255 }

// Mode is the lighting animation mode of a cup.
type Mode uint8

const (
	ModeStatic Mode = iota
	ModePulse
	ModeStrobe
	ModeRainbow
)

var modeNames = [...]string{"static", "pulse", "strobe", "rainbow"}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool { return int(m) < len(modeNames) }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidCommand, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode maps a mode name (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidCommand, s)
}

// BatteryUnknown marks a cup whose battery has not been reported yet.
const BatteryUnknown = -1

// Device is one physical cup peripheral as tracked by the Registry.
type Device struct {
	ID         string          `json:"id"`   // BLE address, immutable
	Name       string          `json:"name"` // Advertised local name
	State      ConnectionState `json:"connection_state"`
	Color      Color           `json:"color"`
	Brightness int             `json:"brightness"`
	Mode       Mode            `json:"mode"`
	Battery    int             `json:"battery_level"` // 0-100 or BatteryUnknown
	RSSI       int16           `json:"rssi"`
	LastSeenAt time.Time       `json:"last_seen_at"`
}

// Connected reports whether the device is a valid dispatch target.
func (d *Device) Connected() bool { return d.State == StateConnected }

// Defaults applied to newly discovered cups until the first confirmed command.
var (
	DefaultColor      = Color{R: 255, G: 255, B: 255}
	DefaultBrightness = 100
	DefaultMode       = ModeStatic
)

// CommandKind identifies what a Command changes on a cup.
type CommandKind string

const (
	CommandSetColor      CommandKind = "set_color"
	CommandSetBrightness CommandKind = "set_brightness"
	CommandSetMode       CommandKind = "set_mode"
	CommandQueryBattery  CommandKind = "query_battery"
)

// Command is a single user intent fanned out to a set of cups.
// Only the field matching Kind is meaningful.
type Command struct {
	Kind       CommandKind `json:"kind"`
	Color      Color       `json:"color"`
	Brightness int         `json:"brightness"`
	Mode       Mode        `json:"mode"`
}

// SetColor builds a color command.
func SetColor(c Color) Command { return Command{Kind: CommandSetColor, Color: c} }

// SetBrightness builds a brightness command.
func SetBrightness(level int) Command { return Command{Kind: CommandSetBrightness, Brightness: level} }

// SetMode builds a mode command.
func SetMode(m Mode) Command { return Command{Kind: CommandSetMode, Mode: m} }

// QueryBattery builds a battery query command.
func QueryBattery() Command { return Command{Kind: CommandQueryBattery} }

func (c Command) String() string {
	switch c.Kind {
	case CommandSetColor:
		return "color " + c.Color.Hex()
	case CommandSetBrightness:
		return "brightness " + strconv.Itoa(c.Brightness)
	case CommandSetMode:
		return "mode " + c.Mode.String()
	default:
		return string(c.Kind)
	}
}

// Outcome is the per-device result of one dispatch.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeProtocolError Outcome = "protocol_error"
	OutcomeNotConnected  Outcome = "not_connected"
)

// Outcomes maps device id to the result of writing a command to it.
type Outcomes map[string]Outcome

// Failed returns the sorted ids whose outcome is not Success.
func (o Outcomes) Failed() []string {
	var ids []string
	for id, out := range o {
		if out != OutcomeSuccess {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Succeeded returns how many devices confirmed the command.
func (o Outcomes) Succeeded() int {
	n := 0
	for _, out := range o {
		if out == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Validate checks command parameters without touching any device.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandSetColor:
		if !c.Color.Valid() {
			return fmt.Errorf("%w: color channel out of range 0-255: %d,%d,%d",
				ErrInvalidCommand, c.Color.R, c.Color.G, c.Color.B)
		}
	case CommandSetBrightness:
		if c.Brightness < 0 || c.Brightness > 100 {
			return fmt.Errorf("%w: brightness %d out of range 0-100", ErrInvalidCommand, c.Brightness)
		}
	case CommandSetMode:
		if !c.Mode.Valid() {
			return fmt.Errorf("%w: unknown mode %d", ErrInvalidCommand, uint8(c.Mode))
		}
	case CommandQueryBattery:
	default:
		return fmt.Errorf("%w: unknown command kind %q", ErrInvalidCommand, c.Kind)
	}
	return nil
}
