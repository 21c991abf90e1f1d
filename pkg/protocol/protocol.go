// Package protocol encodes cup commands into characteristic payloads and
// decodes the notifications cups send back. It performs no I/O.
//
// Every frame is a single command identifier byte followed by the
// parameter bytes for that command:
//
//	0x01 set color        [R][G][B]
//	0x02 set brightness   [level 0-100]
//	0x03 set mode         [0 static, 1 pulse, 2 strobe, 3 rainbow]
//	0x04 battery query    (no parameters)
//	0x81 battery report   [level 0-100, 0xFF unknown]   (notification)
package protocol

import (
	"fmt"

	"github.com/urmzd/glowcup/pkg/cup"
)

// GATT profile of the cup firmware. Fixed, never discovered at runtime.
const (
	ServiceUUID     = "0000ffe0-0000-1000-8000-00805f9b34fb"
	CommandCharUUID = "0000ffe1-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID  = "0000ffe2-0000-1000-8000-00805f9b34fb"
)

// Command identifiers
const (
	cmdSetColor      uint8 = 0x01
	cmdSetBrightness uint8 = 0x02
	cmdSetMode       uint8 = 0x03
	cmdBatteryQuery  uint8 = 0x04
)

// Notification identifiers
const (
	notifyBatteryReport uint8 = 0x81
)

const batteryUnknownByte uint8 = 0xFF

// Firmware mode codes. Kept separate from cup.Mode so the wire format
// does not shift if the enum is reordered.
const (
	modeStatic  uint8 = 0x00
	modePulse   uint8 = 0x01
	modeStrobe  uint8 = 0x02
	modeRainbow uint8 = 0x03
)

// encodeFrame builds a command frame: identifier byte then parameters.
func encodeFrame(commandID uint8, params ...byte) []byte {
	frame := make([]byte, 0, 1+len(params))
	frame = append(frame, commandID)
	frame = append(frame, params...)
	return frame
}

// EncodeColor builds a set-color frame.
func EncodeColor(c cup.Color) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: color channel out of range 0-255: %d,%d,%d",
			cup.ErrInvalidCommand, c.R, c.G, c.B)
	}
	return encodeFrame(cmdSetColor, byte(c.R), byte(c.G), byte(c.B)), nil
}

// EncodeBrightness builds a set-brightness frame for a level in 0-100.
func EncodeBrightness(level int) ([]byte, error) {
	if level < 0 || level > 100 {
		return nil, fmt.Errorf("%w: brightness %d out of range 0-100", cup.ErrInvalidCommand, level)
	}
	return encodeFrame(cmdSetBrightness, byte(level)), nil
}

// EncodeMode builds a set-mode frame.
func EncodeMode(m cup.Mode) ([]byte, error) {
	var code uint8
	switch m {
	case cup.ModeStatic:
		code = modeStatic
	case cup.ModePulse:
		code = modePulse
	case cup.ModeStrobe:
		code = modeStrobe
	case cup.ModeRainbow:
		code = modeRainbow
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", cup.ErrInvalidCommand, uint8(m))
	}
	return encodeFrame(cmdSetMode, code), nil
}

// EncodeBatteryQuery builds a frame asking the cup to report its battery.
func EncodeBatteryQuery() []byte {
	return encodeFrame(cmdBatteryQuery)
}

// Encode builds the frame for any command kind.
func Encode(cmd cup.Command) ([]byte, error) {
	switch cmd.Kind {
	case cup.CommandSetColor:
		return EncodeColor(cmd.Color)
	case cup.CommandSetBrightness:
		return EncodeBrightness(cmd.Brightness)
	case cup.CommandSetMode:
		return EncodeMode(cmd.Mode)
	case cup.CommandQueryBattery:
		return EncodeBatteryQuery(), nil
	default:
		return nil, fmt.Errorf("%w: unknown command kind %q", cup.ErrInvalidCommand, cmd.Kind)
	}
}

// DecodeBatteryNotification parses a battery report. It returns
// cup.BatteryUnknown when the cup has no reading yet.
func DecodeBatteryNotification(data []byte) (int, error) {
	if len(data) != 2 {
		return cup.BatteryUnknown, fmt.Errorf("%w: battery report must be 2 bytes, got %d", cup.ErrProtocol, len(data))
	}
	if data[0] != notifyBatteryReport {
		return cup.BatteryUnknown, fmt.Errorf("%w: unexpected notification id 0x%02X", cup.ErrProtocol, data[0])
	}

	level := data[1]
	if level == batteryUnknownByte {
		return cup.BatteryUnknown, nil
	}
	if level > 100 {
		return cup.BatteryUnknown, fmt.Errorf("%w: battery level %d out of range", cup.ErrProtocol, level)
	}
	return int(level), nil
}

// IsBatteryNotification reports whether data carries the battery report id,
// letting callers skip notifications meant for other consumers.
func IsBatteryNotification(data []byte) bool {
	return len(data) > 0 && data[0] == notifyBatteryReport
}
