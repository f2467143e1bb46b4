package ipx

import (
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// publicIPServices return the caller's public address as plain text.
// Tried in order; the first parseable answer wins.
var publicIPServices = []string{
	"https://api.ipify.org",
	"https://checkip.amazonaws.com",
}

// cgnatRanges covers carrier-grade NAT (RFC 6598) plus the RFC 1918
// private ranges. A router WAN address in any of these means port
// forwarding on that router cannot make the host reachable.
var cgnatRanges = func() []*net.IPNet {
	cidrs := []string{
		"100.64.0.0/10",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, ipNet)
	}
	return nets
}()

// LocalIP returns the machine's LAN address, or "" when it cannot be
// determined. Dialing UDP does not send anything; it only makes the
// kernel pick the outbound interface.
func LocalIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		log.Debugf("local IP detection failed: %v", err)
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}

// PublicIP asks an external service for this machine's public address.
// Returns "" when every service fails or answers with something that is
// not an IPv4 address.
func PublicIP(timeout time.Duration) string {
	client := &http.Client{Timeout: timeout}

	for _, url := range publicIPServices {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", "dosctl")

		resp, err := client.Do(req)
		if err != nil {
			log.Debugf("public IP lookup via %s failed: %v", url, err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
		_ = resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			log.Debugf("public IP lookup via %s failed: status %d", url, resp.StatusCode)
			continue
		}

		ip := strings.TrimSpace(string(body))
		if net.ParseIP(ip).To4() == nil {
			log.Debugf("public IP lookup via %s returned %q, not an IPv4 address", url, ip)
			continue
		}
		return ip
	}

	return ""
}

// IsCGNAT reports whether ip falls in the CGNAT or private ranges.
// Unparsable input is not treated as CGNAT.
func IsCGNAT(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range cgnatRanges {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}
