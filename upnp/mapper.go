// Package upnp implements the minimal Internet Gateway Device client
// needed to make a hosted IPX server reachable from the internet: SSDP
// multicast discovery of the router, device descriptor parsing, and the
// SOAP control actions for UDP port mappings. The wire formats are spoken
// directly over UDP sockets and plain HTTP.
//
// Port mapping is best-effort by nature; routers vary wildly in UPnP
// compliance. Every network-facing method therefore reports failure
// through its return value instead of an error, so callers always have a
// non-exceptional fallback path. The one exception is calling a mapping
// action before a gateway was discovered, which is a programming error
// and surfaces as ErrNoGateway.
package upnp

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

const (
	userAgent = "dosctl UPnP/1.0"

	// ProtocolUDP and ProtocolTCP are the transport values understood
	// by IGD port mapping actions.
	ProtocolUDP = "UDP"
	ProtocolTCP = "TCP"

	defaultDiscoverTimeout = 3 * time.Second
	soapTimeout            = 5 * time.Second

	defaultDescription   = "dosctl"
	defaultLeaseDuration = 3600
)

// ErrNoGateway is returned when a mapping action runs before a gateway
// was discovered.
var ErrNoGateway = errors.New("no gateway discovered, call DiscoverGateway first")

type mapping struct {
	externalPort int
	protocol     string
}

// Mapper negotiates port mappings with one gateway for the duration of a
// hosting session.
//
//	m := upnp.NewMapper()
//	if m.DiscoverGateway(0) {
//		ok, err := m.AddPortMapping(19900, "192.168.1.42")
//		...
//		m.DeletePortMapping(19900, upnp.ProtocolUDP)
//	}
type Mapper struct {
	httpClient *http.Client
	ssdpAddr   string

	controlURL  string
	serviceType string

	mu       sync.Mutex
	mappings []mapping
	lastErr  string

	cleanupOnce sync.Once
}

// NewMapper returns a Mapper ready for discovery.
func NewMapper() *Mapper {
	return &Mapper{
		httpClient: &http.Client{Timeout: soapTimeout},
		ssdpAddr:   ssdpMulticastAddr,
	}
}

// DiscoverGateway looks for an IGD on the local network and remembers its
// control endpoint. A timeout of zero uses the default discovery window.
// Returns false when no usable gateway answered; discovery failures never
// surface as errors.
func (m *Mapper) DiscoverGateway(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = defaultDiscoverTimeout
	}

	location := m.ssdpDiscover(timeout)
	if location == "" {
		return false
	}

	desc, err := m.fetchDescriptor(location)
	if err != nil {
		log.Debugf("upnp: descriptor at %s unusable: %v", location, err)
		return false
	}

	controlURL, serviceType, err := resolveControlURL(desc, location)
	if err != nil {
		log.Debugf("upnp: %v", err)
		return false
	}

	m.controlURL = controlURL
	m.serviceType = serviceType
	log.Debugf("upnp: gateway control endpoint %s (%s)", controlURL, serviceType)
	return true
}

// MappingOption adjusts an AddPortMapping request.
type MappingOption func(*mappingRequest)

type mappingRequest struct {
	internalPort  int
	protocol      string
	description   string
	leaseDuration int
}

// WithInternalPort maps the external port to a different internal one.
func WithInternalPort(port int) MappingOption {
	return func(r *mappingRequest) { r.internalPort = port }
}

// WithProtocol selects the transport, ProtocolUDP by default.
func WithProtocol(protocol string) MappingOption {
	return func(r *mappingRequest) { r.protocol = protocol }
}

// WithDescription labels the mapping in the router's table.
func WithDescription(description string) MappingOption {
	return func(r *mappingRequest) { r.description = description }
}

// WithLeaseDuration sets the lease in seconds. Zero asks for a permanent
// mapping on routers that support it.
func WithLeaseDuration(seconds int) MappingOption {
	return func(r *mappingRequest) { r.leaseDuration = seconds }
}

// AddPortMapping asks the gateway to forward externalPort to internalIP.
// The mapping is tracked for Cleanup on success. Gateway refusals and
// transport failures yield (false, nil); the error return fires only for
// the ErrNoGateway precondition.
func (m *Mapper) AddPortMapping(externalPort int, internalIP string, opts ...MappingOption) (bool, error) {
	if m.controlURL == "" || m.serviceType == "" {
		return false, ErrNoGateway
	}

	req := mappingRequest{
		internalPort:  externalPort,
		protocol:      ProtocolUDP,
		description:   defaultDescription,
		leaseDuration: defaultLeaseDuration,
	}
	for _, opt := range opts {
		opt(&req)
	}

	body := addPortMappingBody(m.serviceType, externalPort, req.protocol, req.internalPort, internalIP, req.description, req.leaseDuration)
	if _, err := m.soapRequest("AddPortMapping", body); err != nil {
		m.setLastError(err)
		log.Debugf("upnp: %v", err)
		return false, nil
	}

	m.mu.Lock()
	m.mappings = append(m.mappings, mapping{externalPort: externalPort, protocol: req.protocol})
	m.mu.Unlock()
	return true, nil
}

// DeletePortMapping removes a forwarding entry and drops it from the
// tracked set. False means the gateway refused or none was discovered.
func (m *Mapper) DeletePortMapping(externalPort int, protocol string) bool {
	if m.controlURL == "" || m.serviceType == "" {
		return false
	}

	body := deletePortMappingBody(m.serviceType, externalPort, protocol)
	if _, err := m.soapRequest("DeletePortMapping", body); err != nil {
		m.setLastError(err)
		log.Debugf("upnp: %v", err)
		return false
	}

	m.mu.Lock()
	for i, entry := range m.mappings {
		if entry.externalPort == externalPort && entry.protocol == protocol {
			m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return true
}

type externalIPResponse struct {
	IP string `xml:"Body>GetExternalIPAddressResponse>NewExternalIPAddress"`
}

// GetExternalIP asks the gateway for its WAN address. Returns "" on any
// failure or when no gateway was discovered.
func (m *Mapper) GetExternalIP() string {
	if m.controlURL == "" || m.serviceType == "" {
		return ""
	}

	respBody, err := m.soapRequest("GetExternalIPAddress", getExternalIPBody(m.serviceType))
	if err != nil {
		log.Debugf("upnp: %v", err)
		return ""
	}

	var parsed externalIPResponse
	if err := xml.Unmarshal([]byte(respBody), &parsed); err != nil {
		log.Debugf("upnp: parse GetExternalIPAddress response: %v", err)
		return ""
	}
	return strings.TrimSpace(parsed.IP)
}

// VerifyPortMapping queries the gateway for a specific mapping entry and
// reports whether it answered without a fault. Routers answer this
// inconsistently, so treat the result as a confidence signal, not as
// proof either way.
func (m *Mapper) VerifyPortMapping(externalPort int, protocol string) bool {
	if m.controlURL == "" || m.serviceType == "" {
		return false
	}

	body := getSpecificPortMappingBody(m.serviceType, externalPort, protocol)
	if _, err := m.soapRequest("GetSpecificPortMappingEntry", body); err != nil {
		log.Debugf("upnp: %v", err)
		return false
	}
	return true
}

// Cleanup removes every mapping this mapper added. Individual failures
// are logged, never returned; there is nobody left to recover at the
// point this usually runs.
func (m *Mapper) Cleanup() {
	m.mu.Lock()
	snapshot := make([]mapping, len(m.mappings))
	copy(snapshot, m.mappings)
	m.mu.Unlock()

	var result *multierror.Error
	for _, entry := range snapshot {
		if !m.DeletePortMapping(entry.externalPort, entry.protocol) {
			result = multierror.Append(result, fmt.Errorf("port %d/%s: %s", entry.externalPort, entry.protocol, m.LastError()))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Warnf("upnp: could not remove all port mappings: %v", err)
	}
}

// RegisterCleanup arranges for Cleanup to run when the process is
// interrupted or terminated. Installed at most once per mapper. A normal
// exit leaves the mappings in place on purpose: the hosted session
// outlives this process and the lease expires on its own.
func (m *Mapper) RegisterCleanup() {
	m.cleanupOnce.Do(func() {
		termCh := make(chan os.Signal, 1)
		signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-termCh
			log.Info("shutdown signal received")
			m.Cleanup()
			os.Exit(1)
		}()
	})
}

// LastError describes the most recent gateway refusal in human terms,
// for surfacing alongside the manual-configuration hint.
func (m *Mapper) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Mapper) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}
