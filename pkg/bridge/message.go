package bridge

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/urmzd/glowcup/pkg/cup"
)

// Opcodes. Requests carry the host's sequence number and are answered
// with the same sequence and the opcode with the high bit set. Events are
// unsolicited and use eventSeq.
const (
	opReset      uint8 = 0x01
	opScanStart  uint8 = 0x10
	opScanStop   uint8 = 0x11
	opConnect    uint8 = 0x20
	opDisconnect uint8 = 0x21
	opWrite      uint8 = 0x30
	opSubscribe  uint8 = 0x31

	opResponseBit uint8 = 0x80

	evtAdvertisement uint8 = 0x40
	evtNotification  uint8 = 0x41
	evtDisconnected  uint8 = 0x42

	eventSeq uint8 = 0xFF
)

// Response status codes
const (
	statusOK           uint8 = 0x00
	statusNotFound     uint8 = 0x01
	statusNotConnected uint8 = 0x02
	statusTimeout      uint8 = 0x03
	statusBusy         uint8 = 0x04
	statusGATTError    uint8 = 0x05
	statusAdapterOff   uint8 = 0x06
)

// ErrMalformed indicates a message body that does not match its opcode
var ErrMalformed = errors.New("malformed bridge message")

type message struct {
	seq  uint8
	op   uint8
	body []byte
}

func (m message) marshal() []byte {
	out := make([]byte, 0, 2+len(m.body))
	out = append(out, m.seq, m.op)
	return append(out, m.body...)
}

func parseMessage(data []byte) (message, error) {
	if len(data) < 2 {
		return message{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	return message{seq: data[0], op: data[1], body: data[2:]}, nil
}

func (m message) isResponse() bool { return m.op&opResponseBit != 0 && m.seq != eventSeq }

// statusError maps a response status to the matching cup sentinel.
func statusError(status uint8) error {
	switch status {
	case statusOK:
		return nil
	case statusNotFound:
		return cup.ErrDeviceNotFound
	case statusNotConnected:
		return cup.ErrNotConnected
	case statusTimeout:
		return cup.ErrCommandTimeout
	case statusBusy:
		return cup.ErrScanInProgress
	case statusGATTError:
		return cup.ErrProtocol
	case statusAdapterOff:
		return cup.ErrAdapterDisabled
	default:
		return fmt.Errorf("%w: bridge status 0x%02X", cup.ErrProtocol, status)
	}
}

// encodeAddress packs "AA:BB:CC:DD:EE:FF" into six bytes.
func encodeAddress(id string) ([]byte, error) {
	hw, err := net.ParseMAC(id)
	if err != nil || len(hw) != 6 {
		return nil, fmt.Errorf("%w: %q is not a BLE address", cup.ErrDeviceNotFound, id)
	}
	return []byte(hw), nil
}

func decodeAddress(b []byte) (string, error) {
	if len(b) < 6 {
		return "", fmt.Errorf("%w: address needs 6 bytes", ErrMalformed)
	}
	return strings.ToUpper(net.HardwareAddr(b[:6]).String()), nil
}

// decodeAdvertisement parses [addr:6][rssi:int8][nameLen:1][name].
func decodeAdvertisement(body []byte) (string, string, int16, error) {
	id, err := decodeAddress(body)
	if err != nil {
		return "", "", 0, err
	}
	if len(body) < 8 {
		return "", "", 0, fmt.Errorf("%w: advertisement too short", ErrMalformed)
	}
	rssi := int16(int8(body[6]))
	n := int(body[7])
	if len(body) < 8+n {
		return "", "", 0, fmt.Errorf("%w: advertisement name truncated", ErrMalformed)
	}
	return id, string(body[8 : 8+n]), rssi, nil
}
