package dissect

import (
	"net"
	"strings"

	"golang.org/x/net/dns/dnsmessage"
)

// parseDNSAnswers extracts hostname<->IP bindings from a unicast DNS
// response's answer section. Queries, and responses carrying no A/AAAA
// answers, yield nil.
func parseDNSAnswers(payload []byte) []NameBinding {
	var parser dnsmessage.Parser
	hdr, err := parser.Start(payload)
	if err != nil || !hdr.Response {
		return nil
	}
	if err := parser.SkipAllQuestions(); err != nil {
		return nil
	}

	var bindings []NameBinding
	for {
		rr, err := parser.Answer()
		if err == dnsmessage.ErrSectionDone {
			break
		}
		if err != nil {
			break
		}
		name := strings.TrimSuffix(rr.Header.Name.String(), ".")
		switch body := rr.Body.(type) {
		case *dnsmessage.AResource:
			ip := netIPFrom4(body.A)
			bindings = append(bindings, NameBinding{Hostname: name, IP: ip})
		case *dnsmessage.AAAAResource:
			ip := netIPFrom16(body.AAAA)
			bindings = append(bindings, NameBinding{Hostname: name, IP: ip})
		}
	}
	return bindings
}

// parseMDNSAnnouncement extracts one (ip, hostname, services) triple from
// an mDNS packet's answer/authority/additional sections, mirroring the
// record-walking the unicast path uses but also collecting service-type
// PTR/SRV records for the classifier.
func parseMDNSAnnouncement(payload []byte, srcIP string) *MDNSAnnouncement {
	var parser dnsmessage.Parser
	if _, err := parser.Start(payload); err != nil {
		return nil
	}
	if err := parser.SkipAllQuestions(); err != nil {
		return nil
	}

	result := &MDNSAnnouncement{IP: srcIP}
	walkSection := func(next func() (dnsmessage.Resource, error)) {
		for {
			rr, err := next()
			if err == dnsmessage.ErrSectionDone || err != nil {
				return
			}
			extractMDNSRecord(rr, result)
		}
	}
	walkSection(parser.Answer)
	walkSection(parser.Authority)
	walkSection(parser.Additional)

	if result.Hostname == "" && len(result.Services) == 0 {
		return nil
	}
	return result
}

func extractMDNSRecord(rr dnsmessage.Resource, result *MDNSAnnouncement) {
	name := rr.Header.Name.String()

	switch body := rr.Body.(type) {
	case *dnsmessage.PTRResource:
		ptr := body.PTR.String()
		if svc := serviceTypeFromName(name); svc != "" && !containsService(result.Services, svc) {
			result.Services = append(result.Services, svc)
		}
		if strings.HasSuffix(ptr, ".local.") && !strings.Contains(ptr, "_") {
			result.Hostname = strings.TrimSuffix(ptr, ".local.")
		}
	case *dnsmessage.AResource, *dnsmessage.AAAAResource:
		if strings.HasSuffix(name, ".local.") && !strings.Contains(name, "_") {
			result.Hostname = strings.TrimSuffix(name, ".local.")
		}
	case *dnsmessage.SRVResource:
		if svc := serviceTypeFromName(name); svc != "" && !containsService(result.Services, svc) {
			result.Services = append(result.Services, svc)
		}
		target := body.Target.String()
		if strings.HasSuffix(target, ".local.") && !strings.Contains(target, "_") {
			result.Hostname = strings.TrimSuffix(target, ".local.")
		}
	}
}

// serviceTypeFromName extracts "_service._proto" from an mDNS record
// name such as "My Chromecast._googlecast._tcp.local.".
func serviceTypeFromName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if strings.HasPrefix(part, "_") && i+1 < len(parts) {
			next := parts[i+1]
			if next == "_tcp" || next == "_udp" {
				return part + "." + next
			}
		}
	}
	return ""
}

func containsService(services []string, s string) bool {
	for _, svc := range services {
		if svc == s {
			return true
		}
	}
	return false
}

func netIPFrom4(b [4]byte) string {
	return net.IP(b[:]).String()
}

func netIPFrom16(b [16]byte) string {
	return net.IP(b[:]).String()
}
