// Package ipx holds the networking side of DOSBox IPX multiplayer: the
// IPXNET session configs handed to the launcher and the address helpers
// the net commands use to tell players how to reach each other.
package ipx

import "fmt"

// DefaultPort is the UDP port DOSBox IPX servers listen on unless the user
// picks another one. Discovery codes omit it, so keep it stable.
const DefaultPort = 19900

// Config describes an IPX session for the DOSBox launcher. When present,
// the launcher enables IPX emulation and runs Command inside DOSBox before
// the game starts.
type Config interface {
	// Command returns the IPXNET command to run inside DOSBox.
	Command() string
}

// ServerConfig hosts an IPX server on the given port.
type ServerConfig struct {
	Port int
}

func (c ServerConfig) Command() string {
	return fmt.Sprintf("IPXNET STARTSERVER %d", c.Port)
}

// ClientConfig joins an IPX server. The host may be a LAN peer or an
// internet host resolved from a discovery code before reaching the
// launcher.
type ClientConfig struct {
	Host string
	Port int
}

func (c ClientConfig) Command() string {
	return fmt.Sprintf("IPXNET CONNECT %s %d", c.Host, c.Port)
}
