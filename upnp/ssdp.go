package upnp

import (
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

const ssdpMulticastAddr = "239.255.255.250:1900"

// searchTargets are the device types probed during discovery. Both IGD
// generations respond to their own target only, so we search for each.
var searchTargets = []string{
	"urn:schemas-upnp-org:device:InternetGatewayDevice:1",
	"urn:schemas-upnp-org:device:InternetGatewayDevice:2",
}

func buildSearchRequest(st string) []byte {
	msg := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: " + st + "\r\n" +
		"\r\n"
	return []byte(msg)
}

// ssdpDiscover multicasts M-SEARCH requests and returns the LOCATION of
// the first response that carries one, or "" when the timeout passes
// without a usable reply.
func (m *Mapper) ssdpDiscover(timeout time.Duration) string {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		log.Debugf("ssdp: listen failed: %v", err)
		return ""
	}
	defer conn.Close()

	// Home routers sit one hop away, TTL 2 leaves margin without
	// leaking the probe beyond the site.
	if err := ipv4.NewPacketConn(conn).SetMulticastTTL(2); err != nil {
		log.Debugf("ssdp: set multicast TTL: %v", err)
	}

	dst, err := net.ResolveUDPAddr("udp4", m.ssdpAddr)
	if err != nil {
		log.Debugf("ssdp: resolve %s: %v", m.ssdpAddr, err)
		return ""
	}

	for _, st := range searchTargets {
		if _, err := conn.WriteTo(buildSearchRequest(st), dst); err != nil {
			log.Debugf("ssdp: search for %s failed: %v", st, err)
		}
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		log.Debugf("ssdp: set read deadline: %v", err)
		return ""
	}

	buf := make([]byte, 4096)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			// deadline reached or socket error, either way stop waiting
			return ""
		}
		if location := parseSSDPLocation(string(buf[:n])); location != "" {
			log.Debugf("ssdp: %v answered with location %s", from, location)
			return location
		}
	}
}

// parseSSDPLocation extracts the LOCATION header from an SSDP response.
// Header names are case-insensitive per HTTP conventions.
func parseSSDPLocation(response string) string {
	for _, line := range strings.Split(response, "\r\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "LOCATION") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
