package bridge

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// OpenSerial opens the dongle's serial port at baud, 8N1.
func OpenSerial(portPath string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	// The bridge firmware gates output on RTS.
	if err := port.SetRTS(true); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set RTS: %w", err)
	}

	log.Info().Str("port", portPath).Int("baud", baud).Msg("Serial port opened")
	return port, nil
}

// usbPortPrefixes match the device nodes USB serial adapters show up as.
var usbPortPrefixes = []string{"/dev/ttyUSB", "/dev/ttyACM", "/dev/cu.usb", "/dev/cu.SLAB", "COM"}

// DetectPort returns the first serial port that looks like a USB dongle.
func DetectPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, p := range ports {
		for _, prefix := range usbPortPrefixes {
			if strings.HasPrefix(p, prefix) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("no USB serial port found among %d ports", len(ports))
}
