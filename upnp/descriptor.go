package upnp

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// serviceTypes in lookup priority order. WANIPConnection covers most
// routers, WANPPPConnection covers DSL gateways.
var serviceTypes = []string{
	"urn:schemas-upnp-org:service:WANIPConnection:1",
	"urn:schemas-upnp-org:service:WANPPPConnection:1",
	"urn:schemas-upnp-org:service:WANIPConnection:2",
}

// deviceDescriptor is the root of an IGD device description document.
// Field tags carry no namespace on purpose: routers qualify these
// elements with varying namespaces and encoding/xml matches the local
// name either way.
type deviceDescriptor struct {
	XMLName xml.Name `xml:"root"`
	URLBase string   `xml:"URLBase"`
	Device  device   `xml:"device"`
}

type device struct {
	DeviceType string    `xml:"deviceType"`
	Services   []service `xml:"serviceList>service"`
	Devices    []device  `xml:"deviceList>device"`
}

type service struct {
	ServiceType string `xml:"serviceType"`
	ControlURL  string `xml:"controlURL"`
}

// findService walks the device tree depth-first and returns the first
// service matching serviceType.
func (d *device) findService(serviceType string) (service, bool) {
	for _, s := range d.Services {
		if strings.TrimSpace(s.ServiceType) == serviceType {
			return s, true
		}
	}
	for i := range d.Devices {
		if s, ok := d.Devices[i].findService(serviceType); ok {
			return s, true
		}
	}
	return service{}, false
}

// fetchDescriptor downloads and parses the device description at
// location.
func (m *Mapper) fetchDescriptor(location string) (*deviceDescriptor, error) {
	req, err := http.NewRequest(http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("descriptor fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var desc deviceDescriptor
	if err := xml.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	return &desc, nil
}

// resolveControlURL selects the highest-priority recognized service in
// the descriptor and returns its absolute control URL together with the
// matched service type. Relative control URLs resolve against URLBase
// when the descriptor provides one, otherwise against the location URL.
func resolveControlURL(desc *deviceDescriptor, location string) (string, string, error) {
	base, err := descriptorBase(desc, location)
	if err != nil {
		return "", "", err
	}

	for _, st := range serviceTypes {
		svc, ok := desc.Device.findService(st)
		if !ok {
			continue
		}
		controlURL := strings.TrimSpace(svc.ControlURL)
		if controlURL == "" {
			continue
		}
		if strings.HasPrefix(controlURL, "http") {
			return controlURL, st, nil
		}
		ref, err := url.Parse(controlURL)
		if err != nil {
			return "", "", fmt.Errorf("parse control URL %q: %w", controlURL, err)
		}
		return base.ResolveReference(ref).String(), st, nil
	}

	return "", "", fmt.Errorf("no recognized WAN connection service in descriptor")
}

func descriptorBase(desc *deviceDescriptor, location string) (*url.URL, error) {
	raw := strings.TrimSpace(desc.URLBase)
	if raw == "" {
		return url.Parse(location)
	}
	// Relative paths should land inside the base directory, so make
	// sure URLBase ends with a slash before resolving against it.
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return url.Parse(raw)
}
