// Package classify assigns a device-type category to an endpoint from its
// MAC vendor, hostname, mDNS services, SSDP model, and address range.
package classify

import (
	"net"
	"strings"

	"netwatch.dev/netwatch/internal/oui"
)

// DeviceType is one of the fixed classification categories.
type DeviceType string

const (
	Gateway        DeviceType = "gateway"
	Internet       DeviceType = "internet"
	Printer        DeviceType = "printer"
	TV             DeviceType = "tv"
	Gaming         DeviceType = "gaming"
	Phone          DeviceType = "phone"
	Virtualization DeviceType = "virtualization"
	Soundbar       DeviceType = "soundbar"
	Appliance      DeviceType = "appliance"
	Local          DeviceType = "local"
	Other          DeviceType = "other"
)

// Input is the evidence available for one classification decision.
type Input struct {
	ManualOverride  DeviceType // empty if no override is set
	MAC             string
	Hostname        string
	MDNSServices    []string
	SSDPModel       string
	IsGatewayIP     bool // set by caller when the IP is the default route
	IP              string
	KnownOpenPorts  []int
}

// Classifier evaluates the C6 rule chain in order, returning the first
// matching category.
type Classifier struct {
	ouiDB *oui.DB
}

// New creates a Classifier backed by ouiDB.
func New(ouiDB *oui.DB) *Classifier {
	if ouiDB == nil {
		ouiDB = oui.NewDB()
	}
	return &Classifier{ouiDB: ouiDB}
}

// Classify returns a device type for in, evaluating rules in priority
// order: manual override, gateway IP, mDNS service pattern, hostname
// pattern, MAC OUI, then IP-membership fallback.
func (c *Classifier) Classify(in Input) DeviceType {
	if in.ManualOverride != "" {
		return in.ManualOverride
	}

	if in.IsGatewayIP {
		return Gateway
	}

	if t, ok := classifyByMDNS(in.MDNSServices, in.Hostname); ok {
		return t
	}

	if t, ok := classifyByHostname(in.Hostname); ok {
		return t
	}

	if t, ok := classifyByOUI(c.ouiDB, in.MAC); ok {
		return t
	}

	return classifyByIP(in.IP)
}

var mdnsServiceRules = map[string]DeviceType{
	"_ipp._tcp":            Printer,
	"_printer._tcp":        Printer,
	"_pdl-datastream._tcp": Printer,
	"_googlecast._tcp":     TV,
	"_airplay._tcp":        TV,
	"_spotify-connect._tcp": Soundbar,
	"_sonos._tcp":          Soundbar,
	"_raop._tcp":           Soundbar,
}

func classifyByMDNS(services []string, hostname string) (DeviceType, bool) {
	for _, svc := range services {
		// A Mac advertising Handoff/Continuity service is still a
		// general-purpose computer, not a media endpoint.
		if svc == "_companion-link._tcp" && looksLikeMacHostname(hostname) {
			return Local, true
		}
		if t, ok := mdnsServiceRules[svc]; ok {
			return t, true
		}
	}
	return "", false
}

func looksLikeMacHostname(hostname string) bool {
	lower := strings.ToLower(hostname)
	for _, pat := range []string{"macbook", "imac", "mac-mini", "mbp", "mba"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

var hostnamePatternRules = []struct {
	substr string
	dtype  DeviceType
}{
	{"ps5", Gaming}, {"ps4", Gaming}, {"playstation", Gaming},
	{"xbox", Gaming}, {"nintendo-switch", Gaming}, {"switch", Gaming},
	{"appletv", TV}, {"roku", TV}, {"chromecast", TV}, {"firetv", TV},
	{"-lma", Local}, {"-wm", Local},
	{"hp-printer", Printer}, {"canon-", Printer}, {"epson-", Printer},
	{"iphone", Phone}, {"android", Phone}, {"galaxy", Phone}, {"pixel", Phone},
	{"vmware", Virtualization}, {"virtualbox", Virtualization}, {"qemu", Virtualization},
}

func classifyByHostname(hostname string) (DeviceType, bool) {
	if hostname == "" {
		return "", false
	}
	lower := strings.ToLower(hostname)
	for _, rule := range hostnamePatternRules {
		if strings.Contains(lower, rule.substr) {
			return rule.dtype, true
		}
	}
	return "", false
}

var ouiVendorRules = []struct {
	vendorSubstr string
	dtype        DeviceType
}{
	{"nintendo", Gaming},
	{"sony interactive", Gaming},
	{"microsoft", Gaming},
	{"roku", TV},
	{"samsung electronics", TV},
	{"sonos", Soundbar},
	{"vmware", Virtualization},
	{"virtualbox", Virtualization},
	{"qemu/kvm", Virtualization},
	{"hp", Printer},
	{"canon", Printer},
	{"brother industries", Printer},
}

func classifyByOUI(db *oui.DB, mac string) (DeviceType, bool) {
	if mac == "" {
		return "", false
	}
	vendor := strings.ToLower(db.Lookup(mac))
	if vendor == "" {
		return "", false
	}
	for _, rule := range ouiVendorRules {
		if strings.Contains(vendor, rule.vendorSubstr) {
			return rule.dtype, true
		}
	}
	return "", false
}

func classifyByIP(ipStr string) DeviceType {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Other
	}
	if isPrivate(ip) {
		return Local
	}
	return Internet
}

var privateBlocks = []string{
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"fc00::/7", "fe80::/10", "127.0.0.0/8", "::1/128",
}

func isPrivate(ip net.IP) bool {
	for _, cidr := range privateBlocks {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
