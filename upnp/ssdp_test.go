package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSSDPLocation(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		expected string
	}{
		{
			name: "location header",
			response: "HTTP/1.1 200 OK\r\n" +
				"LOCATION: http://192.168.1.1:1780/InternetGatewayDevice.xml\r\n" +
				"ST: urn:schemas-upnp-org:device:InternetGatewayDevice:1\r\n" +
				"\r\n",
			expected: "http://192.168.1.1:1780/InternetGatewayDevice.xml",
		},
		{
			name:     "lowercase header name",
			response: "HTTP/1.1 200 OK\r\nlocation: http://example.com/desc.xml\r\n\r\n",
			expected: "http://example.com/desc.xml",
		},
		{
			name:     "missing location",
			response: "HTTP/1.1 200 OK\r\n\r\n",
			expected: "",
		},
		{
			name:     "empty response",
			response: "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseSSDPLocation(tc.response))
		})
	}
}

func TestBuildSearchRequest(t *testing.T) {
	request := string(buildSearchRequest("urn:schemas-upnp-org:device:InternetGatewayDevice:1"))

	assert.Contains(t, request, "M-SEARCH * HTTP/1.1\r\n")
	assert.Contains(t, request, "HOST: 239.255.255.250:1900\r\n")
	assert.Contains(t, request, "MAN: \"ssdp:discover\"\r\n")
	assert.Contains(t, request, "MX: 2\r\n")
	assert.Contains(t, request, "ST: urn:schemas-upnp-org:device:InternetGatewayDevice:1\r\n")
}
