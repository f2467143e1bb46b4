// Package discovery implements human-speakable discovery codes for sharing
// a host's address with other players.
//
// A code packs an IPv4 address and UDP port into WORD-NNNNN, for example
// BUZZ-00001 for 10.0.0.1. The word carries the first octet (one of 256
// fixed tokens), the five base36 digits carry the remaining three octets.
// A non-default port is appended as -Pxxxx (four base36 digits); the
// default IPX port is omitted, so codes stay short for the common case.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dosctl/dosctl/ipx"
)

var (
	// ErrMalformedCode is returned when a code does not have the
	// WORD-NNNNN or WORD-NNNNN-Pxxxx shape.
	ErrMalformedCode = errors.New("invalid discovery code format")
	// ErrUnknownWord is returned when the word section is not in the table.
	ErrUnknownWord = errors.New("unknown word in discovery code")
	// ErrOutOfRange is returned when the digit section exceeds 24 bits.
	// Encode never produces such codes, so this only fires on forged input.
	ErrOutOfRange = errors.New("digit section out of range")
	// ErrMalformedPort is returned when the port section is not P plus
	// exactly four base36 digits.
	ErrMalformedPort = errors.New("invalid port section")
	// ErrPortOutOfRange is returned for ports outside 0-65535.
	ErrPortOutOfRange = errors.New("port out of range")
	// ErrInvalidIP is returned for strings that do not parse as IPv4.
	ErrInvalidIP = errors.New("invalid IP address")
)

// Encode converts an IPv4 address and port into a discovery code.
// The port suffix is omitted when port equals ipx.DefaultPort.
func Encode(ip string, port int) (string, error) {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: %d", ErrPortOutOfRange, port)
	}

	word := wordList[v4[0]]
	remainder := int(v4[1])<<16 | int(v4[2])<<8 | int(v4[3])
	digits, err := toBase36(remainder, 5)
	if err != nil {
		return "", err
	}

	code := word + "-" + digits
	if port != ipx.DefaultPort {
		portDigits, err := toBase36(port, 4)
		if err != nil {
			return "", err
		}
		code = code + "-P" + portDigits
	}
	return code, nil
}

// Decode converts a discovery code back to an IPv4 address and port.
// Input is case-insensitive and surrounding whitespace is ignored.
func Decode(code string) (string, int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	parts := strings.Split(normalized, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return "", 0, fmt.Errorf("%w: expected WORD-NNNNN or WORD-NNNNN-Pxxxx, got %q", ErrMalformedCode, normalized)
	}

	word, digits := parts[0], parts[1]

	a, ok := wordIndex[word]
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}

	if len(digits) != 5 {
		return "", 0, fmt.Errorf("%w: digit section must be 5 characters, got %d", ErrMalformedCode, len(digits))
	}
	remainder, err := fromBase36(digits)
	if err != nil {
		return "", 0, err
	}
	if remainder > 0xFFFFFF {
		return "", 0, fmt.Errorf("%w: %q", ErrOutOfRange, digits)
	}

	b := (remainder >> 16) & 0xFF
	c := (remainder >> 8) & 0xFF
	d := remainder & 0xFF
	ip := fmt.Sprintf("%d.%d.%d.%d", a, b, c, d)

	port := ipx.DefaultPort
	if len(parts) == 3 {
		portPart := parts[2]
		if !strings.HasPrefix(portPart, "P") || len(portPart) != 5 {
			return "", 0, fmt.Errorf("%w: %q", ErrMalformedPort, portPart)
		}
		port, err = fromBase36(portPart[1:])
		if err != nil {
			return "", 0, err
		}
		if port > 65535 {
			return "", 0, fmt.Errorf("%w: %d", ErrPortOutOfRange, port)
		}
	}

	return ip, port, nil
}

// ResolveHost interprets a host argument that is either a raw IPv4 address
// or a discovery code. Raw addresses keep defaultPort, codes carry their
// own port. Anything containing a dot is treated as an address.
func ResolveHost(hostArg string, defaultPort int) (string, int, error) {
	if strings.Contains(hostArg, ".") {
		if net.ParseIP(hostArg).To4() == nil {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidIP, hostArg)
		}
		return hostArg, defaultPort, nil
	}
	return Decode(hostArg)
}
