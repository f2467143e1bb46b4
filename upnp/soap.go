package upnp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const soapEnvelopeFormat = `<?xml version="1.0"?>` +
	`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"` +
	` s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
	`<s:Body>%s</s:Body>` +
	`</s:Envelope>`

func addPortMappingBody(serviceType string, externalPort int, protocol string, internalPort int, internalIP, description string, leaseDuration int) string {
	return fmt.Sprintf(`<u:AddPortMapping xmlns:u="%s">`+
		`<NewRemoteHost></NewRemoteHost>`+
		`<NewExternalPort>%d</NewExternalPort>`+
		`<NewProtocol>%s</NewProtocol>`+
		`<NewInternalPort>%d</NewInternalPort>`+
		`<NewInternalClient>%s</NewInternalClient>`+
		`<NewEnabled>1</NewEnabled>`+
		`<NewPortMappingDescription>%s</NewPortMappingDescription>`+
		`<NewLeaseDuration>%d</NewLeaseDuration>`+
		`</u:AddPortMapping>`,
		serviceType, externalPort, protocol, internalPort, internalIP, xmlEscape(description), leaseDuration)
}

func deletePortMappingBody(serviceType string, externalPort int, protocol string) string {
	return fmt.Sprintf(`<u:DeletePortMapping xmlns:u="%s">`+
		`<NewRemoteHost></NewRemoteHost>`+
		`<NewExternalPort>%d</NewExternalPort>`+
		`<NewProtocol>%s</NewProtocol>`+
		`</u:DeletePortMapping>`,
		serviceType, externalPort, protocol)
}

func getExternalIPBody(serviceType string) string {
	return fmt.Sprintf(`<u:GetExternalIPAddress xmlns:u="%s"></u:GetExternalIPAddress>`, serviceType)
}

func getSpecificPortMappingBody(serviceType string, externalPort int, protocol string) string {
	return fmt.Sprintf(`<u:GetSpecificPortMappingEntry xmlns:u="%s">`+
		`<NewRemoteHost></NewRemoteHost>`+
		`<NewExternalPort>%d</NewExternalPort>`+
		`<NewProtocol>%s</NewProtocol>`+
		`</u:GetSpecificPortMappingEntry>`,
		serviceType, externalPort, protocol)
}

// soapFault mirrors the error document gateways return with HTTP 500.
type soapFault struct {
	FaultString string `xml:"Body>Fault>faultstring"`
	ErrorCode   string `xml:"Body>Fault>detail>UPnPError>errorCode"`
	Description string `xml:"Body>Fault>detail>UPnPError>errorDescription"`
}

// soapRequest posts one SOAP action to the control URL and returns the
// response body. An HTTP error status is reported as an error carrying
// the gateway's fault description when one can be parsed.
func (m *Mapper) soapRequest(action, body string) (string, error) {
	envelope := fmt.Sprintf(soapEnvelopeFormat, body)
	soapAction := fmt.Sprintf("%q", m.serviceType+"#"+action)

	req, err := http.NewRequest(http.MethodPost, m.controlURL, strings.NewReader(envelope))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", soapAction)
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s failed: %s", action, faultDetail(respBody, resp.StatusCode))
	}
	return string(respBody), nil
}

func faultDetail(body []byte, statusCode int) string {
	var fault soapFault
	if err := xml.Unmarshal(body, &fault); err == nil {
		if fault.Description != "" {
			if fault.ErrorCode != "" {
				return fmt.Sprintf("%s (code %s)", fault.Description, fault.ErrorCode)
			}
			return fault.Description
		}
		if fault.FaultString != "" {
			return fault.FaultString
		}
	}
	return fmt.Sprintf("HTTP status %d", statusCode)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
