package upnp

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSDPResponder listens on a loopback UDP port and answers every
// M-SEARCH with an SSDP response advertising location. Returns the
// address to point the mapper at.
func fakeSSDPResponder(t *testing.T, location string) string {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if !strings.HasPrefix(string(buf[:n]), "M-SEARCH") {
				continue
			}
			response := "HTTP/1.1 200 OK\r\n" +
				"LOCATION: " + location + "\r\n" +
				"ST: urn:schemas-upnp-org:device:InternetGatewayDevice:1\r\n" +
				"\r\n"
			_, _ = conn.WriteTo([]byte(response), from)
		}
	}()

	return conn.LocalAddr().String()
}

// silentSSDPAddr returns a loopback UDP address that never answers.
func silentSSDPAddr(t *testing.T) string {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn.LocalAddr().String()
}

// soapGateway is an httptest-backed stand-in for a router's control
// endpoint. It records the actions received and answers success
// envelopes, or a SOAP fault for actions listed in refuse.
type soapGateway struct {
	mu      sync.Mutex
	actions []string
	refuse  map[string]bool
}

func (g *soapGateway) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := r.Header.Get("SOAPAction")
		// SOAPAction is quoted "<serviceType>#<Action>"
		action = strings.Trim(action, `"`)
		if i := strings.LastIndex(action, "#"); i >= 0 {
			action = action[i+1:]
		}

		g.mu.Lock()
		g.actions = append(g.actions, action)
		refused := g.refuse[action]
		g.mu.Unlock()

		if refused {
			w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>718</errorCode>
          <errorDescription>ConflictInMappingEntry</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`)
			return
		}

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		switch action {
		case "GetExternalIPAddress":
			fmt.Fprint(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <u:GetExternalIPAddressResponse xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">
      <NewExternalIPAddress>203.0.113.5</NewExternalIPAddress>
    </u:GetExternalIPAddressResponse>
  </s:Body>
</s:Envelope>`)
		default:
			fmt.Fprintf(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body><u:%sResponse xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1"/></s:Body>
</s:Envelope>`, action)
		}
	}
}

func (g *soapGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.actions...)
}

// discoveredMapper returns a mapper pointed at the gateway as if
// discovery had already succeeded.
func discoveredMapper(controlURL string) *Mapper {
	m := NewMapper()
	m.controlURL = controlURL
	m.serviceType = "urn:schemas-upnp-org:service:WANIPConnection:1"
	return m
}

func TestMapper_DiscoverGateway(t *testing.T) {
	gateway := &soapGateway{}
	mux := http.NewServeMux()
	mux.Handle("/control/WANIPConnection", gateway.handler())

	var server *httptest.Server
	mux.HandleFunc("/desc.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, igdDescriptor(server.URL, "urn:schemas-upnp-org:service:WANIPConnection:1", "/control/WANIPConnection"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	mapper := NewMapper()
	mapper.ssdpAddr = fakeSSDPResponder(t, server.URL+"/desc.xml")

	require.True(t, mapper.DiscoverGateway(2*time.Second))
	assert.Equal(t, server.URL+"/control/WANIPConnection", mapper.controlURL)
	assert.Equal(t, "urn:schemas-upnp-org:service:WANIPConnection:1", mapper.serviceType)
}

func TestMapper_DiscoverGatewayTimeout(t *testing.T) {
	mapper := NewMapper()
	mapper.ssdpAddr = silentSSDPAddr(t)

	assert.False(t, mapper.DiscoverGateway(150*time.Millisecond))
	assert.Empty(t, mapper.controlURL)
	assert.Empty(t, mapper.serviceType)

	// mapping actions must now fail their precondition
	ok, err := mapper.AddPortMapping(19900, "192.168.1.42")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoGateway)
}

func TestMapper_AddVerifyDeleteLifecycle(t *testing.T) {
	gateway := &soapGateway{}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	mapper := discoveredMapper(server.URL)

	ok, err := mapper.AddPortMapping(19900, "192.168.1.42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []mapping{{externalPort: 19900, protocol: ProtocolUDP}}, mapper.mappings)

	assert.True(t, mapper.VerifyPortMapping(19900, ProtocolUDP))

	assert.True(t, mapper.DeletePortMapping(19900, ProtocolUDP))
	assert.Empty(t, mapper.mappings)

	// cleanup over an empty tracked set must not touch the gateway
	before := len(gateway.calls())
	mapper.Cleanup()
	assert.Equal(t, before, len(gateway.calls()))

	assert.Equal(t, []string{"AddPortMapping", "GetSpecificPortMappingEntry", "DeletePortMapping"}, gateway.calls())
}

func TestMapper_AddPortMappingRefused(t *testing.T) {
	gateway := &soapGateway{refuse: map[string]bool{"AddPortMapping": true}}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	mapper := discoveredMapper(server.URL)

	ok, err := mapper.AddPortMapping(19900, "192.168.1.42")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, mapper.mappings)
	assert.Contains(t, mapper.LastError(), "ConflictInMappingEntry")
}

func TestMapper_AddPortMappingOptions(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		fmt.Fprint(w, `<ok/>`)
	}))
	defer server.Close()

	mapper := discoveredMapper(server.URL)

	ok, err := mapper.AddPortMapping(19900, "192.168.1.42",
		WithInternalPort(20000),
		WithProtocol(ProtocolTCP),
		WithDescription("dosctl-session"),
		WithLeaseDuration(600))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Contains(t, body, "<NewExternalPort>19900</NewExternalPort>")
	assert.Contains(t, body, "<NewInternalPort>20000</NewInternalPort>")
	assert.Contains(t, body, "<NewInternalClient>192.168.1.42</NewInternalClient>")
	assert.Contains(t, body, "<NewProtocol>TCP</NewProtocol>")
	assert.Contains(t, body, "<NewPortMappingDescription>dosctl-session</NewPortMappingDescription>")
	assert.Contains(t, body, "<NewLeaseDuration>600</NewLeaseDuration>")
	assert.Contains(t, body, "<NewEnabled>1</NewEnabled>")
}

func TestMapper_GetExternalIP(t *testing.T) {
	gateway := &soapGateway{}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	mapper := discoveredMapper(server.URL)
	assert.Equal(t, "203.0.113.5", mapper.GetExternalIP())
}

func TestMapper_GetExternalIPFailures(t *testing.T) {
	// no gateway discovered
	assert.Empty(t, NewMapper().GetExternalIP())

	// gateway refuses
	gateway := &soapGateway{refuse: map[string]bool{"GetExternalIPAddress": true}}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	assert.Empty(t, discoveredMapper(server.URL).GetExternalIP())
}

func TestMapper_VerifyPortMappingFailures(t *testing.T) {
	// no gateway discovered
	assert.False(t, NewMapper().VerifyPortMapping(19900, ProtocolUDP))

	// router answers with a fault for unknown entries
	gateway := &soapGateway{refuse: map[string]bool{"GetSpecificPortMappingEntry": true}}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	assert.False(t, discoveredMapper(server.URL).VerifyPortMapping(19900, ProtocolUDP))
}

func TestMapper_DeletePortMappingNoGateway(t *testing.T) {
	assert.False(t, NewMapper().DeletePortMapping(19900, ProtocolUDP))
}

func TestMapper_CleanupRemovesAllMappings(t *testing.T) {
	gateway := &soapGateway{}
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	mapper := discoveredMapper(server.URL)

	ok, err := mapper.AddPortMapping(19900, "192.168.1.42")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = mapper.AddPortMapping(19901, "192.168.1.42")
	require.NoError(t, err)
	require.True(t, ok)

	mapper.Cleanup()

	assert.Empty(t, mapper.mappings)
	deletes := 0
	for _, action := range gateway.calls() {
		if action == "DeletePortMapping" {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes)
}

func TestFaultDetail(t *testing.T) {
	faultXML := []byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>718</errorCode>
          <errorDescription>ConflictInMappingEntry</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`)

	assert.Equal(t, "ConflictInMappingEntry (code 718)", faultDetail(faultXML, 500))
	assert.Equal(t, "HTTP status 500", faultDetail([]byte("not xml at all <"), 500))
}
