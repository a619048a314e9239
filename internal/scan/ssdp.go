package scan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"net"
	"net/http"
	"strings"
	"time"
)

const ssdpMulticastAddr = "239.255.255.250:1900"

var ssdpSearchRequest = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"MX: 2\r\n" +
	"ST: ssdp:all\r\n\r\n"

type upnpDevice struct {
	XMLName     xml.Name `xml:"root"`
	Device      struct {
		FriendlyName string `xml:"friendlyName"`
		ModelName    string `xml:"modelName"`
	} `xml:"device"`
}

func (e *Engine) runSSDP(ctx context.Context, started time.Time) {
	addr, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		return
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return
	}
	defer conn.Close()

	if _, err := conn.WriteTo([]byte(ssdpSearchRequest), addr); err != nil {
		return
	}

	deadline := time.Now().Add(3 * time.Second)
	buf := make([]byte, 4096)
	seen := make(map[string]bool)
	for time.Now().Before(deadline) {
		if e.cancelled() {
			return
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		location := parseSSDPLocation(buf[:n])
		if location == "" || seen[location] {
			continue
		}
		seen[location] = true

		host, _, _ := net.SplitHostPort(from.String())
		friendly, model := fetchUPnPDescription(location)
		detail := friendly
		if model != "" {
			detail = friendly + " (" + model + ")"
		}
		e.emit(ctx, started, Finding{Phase: PhaseSSDP, IP: host, Detail: detail})
	}
}

func parseSSDPLocation(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.ToUpper(line), "LOCATION:") {
			return strings.TrimSpace(line[len("LOCATION:"):])
		}
	}
	return ""
}

func fetchUPnPDescription(location string) (friendlyName, modelName string) {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(location)
	if err != nil {
		return "", ""
	}
	defer resp.Body.Close()

	var dev upnpDevice
	if err := xml.NewDecoder(resp.Body).Decode(&dev); err != nil {
		return "", ""
	}
	return dev.Device.FriendlyName, dev.Device.ModelName
}
