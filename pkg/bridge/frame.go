package bridge

import "errors"

// Framing: body, CRC-CCITT big-endian, byte-stuffed, terminated by a flag.
const (
	flagByte   = 0x7E
	escapeByte = 0x7D
	xonByte    = 0x11
	xoffByte   = 0x13
	flipBit    = 0x20
	cancelByte = 0x1A
	substitute = 0x18

	maxFrameLen = 512
)

var (
	// ErrBadCRC indicates a frame whose checksum did not match
	ErrBadCRC = errors.New("frame crc mismatch")

	// ErrShortFrame indicates a frame too small to carry a checksum
	ErrShortFrame = errors.New("frame too short")

	// ErrFrameOverflow indicates a frame longer than the receive buffer
	ErrFrameOverflow = errors.New("frame too long")
)

// encodeFrame builds a complete wire frame around body.
func encodeFrame(body []byte) []byte {
	raw := make([]byte, 0, len(body)+2)
	raw = append(raw, body...)
	crc := crcCCITT(raw)
	raw = append(raw, byte(crc>>8), byte(crc&0xFF))

	frame := stuff(raw)
	return append(frame, flagByte)
}

// decoder reassembles frames from a byte stream.
type decoder struct {
	buf []byte
}

// feed consumes one byte. It returns a verified body when b completes a
// frame. Control bytes reset or are skipped the way the dongle expects.
func (d *decoder) feed(b byte) ([]byte, error) {
	switch b {
	case cancelByte, substitute:
		d.buf = d.buf[:0]
		return nil, nil
	case xonByte, xoffByte:
		return nil, nil
	case flagByte:
		if len(d.buf) == 0 {
			return nil, nil
		}
		raw := unstuff(d.buf)
		d.buf = d.buf[:0]
		return verify(raw)
	}

	d.buf = append(d.buf, b)
	if len(d.buf) > maxFrameLen {
		d.buf = d.buf[:0]
		return nil, ErrFrameOverflow
	}
	return nil, nil
}

func verify(raw []byte) ([]byte, error) {
	if len(raw) < 3 {
		return nil, ErrShortFrame
	}
	body := raw[:len(raw)-2]
	received := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	if received != crcCCITT(body) {
		return nil, ErrBadCRC
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func reserved(b byte) bool {
	switch b {
	case flagByte, escapeByte, xonByte, xoffByte, substitute, cancelByte:
		return true
	}
	return false
}

func stuff(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if reserved(b) {
			out = append(out, escapeByte, b^flipBit)
		} else {
			out = append(out, b)
		}
	}
	return out
}

func unstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		switch {
		case escaped:
			out = append(out, b^flipBit)
			escaped = false
		case b == escapeByte:
			escaped = true
		default:
			out = append(out, b)
		}
	}
	return out
}

// crcCCITT computes CRC-CCITT (0xFFFF initial, poly 0x1021).
func crcCCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
