package dissect

import (
	"bufio"
	"bytes"
	"strings"
)

// httpMethods are the request-line verbs that identify a cleartext
// HTTP/1.x request; anything else (including TLS, or a response) is
// ignored.
var httpMethods = []string{"GET ", "POST ", "HEAD ", "PUT ", "DELETE ", "OPTIONS ", "CONNECT "}

// parseHTTPHost reads the request line and Host header from a TCP
// segment's application payload, returning "" if the segment isn't the
// start of a recognizable HTTP/1.x request. Only headers are inspected;
// the body is never read.
func parseHTTPHost(payload []byte) string {
	matched := false
	for _, m := range httpMethods {
		if bytes.HasPrefix(payload, []byte(m)) {
			matched = true
			break
		}
	}
	if !matched {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 4096), 4096)

	lineNum := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			continue // request line
		}
		if line == "" || line == "\r" {
			break // end of headers
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Host") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
