package dnscache

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Prober issues on-demand reverse-DNS lookups, deduplicated per IP so a
// burst of packets from the same address triggers at most one outstanding
// query.
type Prober struct {
	cache     *Cache
	client    *dns.Client
	resolver  string
	mu        sync.Mutex
	inflight  map[string]bool
}

// NewProber creates a Prober that resolves against resolver (host:port,
// e.g. the system's configured DNS server) and stores successful answers
// in cache.
func NewProber(cache *Cache, resolver string) *Prober {
	if resolver == "" {
		resolver = "127.0.0.1:53"
	}
	return &Prober{
		cache:    cache,
		client:   &dns.Client{Net: "udp", Timeout: 2 * time.Second},
		resolver: resolver,
		inflight: make(map[string]bool),
	}
}

// Probe resolves ip to a hostname via PTR query, populating the cache on
// success. It never blocks longer than its 2s client timeout, and is a
// no-op if a probe for ip is already outstanding.
func (p *Prober) Probe(ip string) {
	p.mu.Lock()
	if p.inflight[ip] {
		p.mu.Unlock()
		return
	}
	p.inflight[ip] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inflight, ip)
		p.mu.Unlock()
	}()

	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := p.client.Exchange(msg, p.resolver)
	if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
		return
	}

	for _, rr := range resp.Answer {
		ptr, ok := rr.(*dns.PTR)
		if !ok {
			continue
		}
		name := strings.TrimSuffix(ptr.Ptr, ".")
		if name == "" {
			continue
		}
		p.cache.Put(name, ip)
		return
	}
}

// SystemResolver returns the first nameserver from the host's resolver
// configuration, or a loopback default if none can be determined.
func SystemResolver() string {
	conf, err := readResolvConf()
	if err != nil || len(conf) == 0 {
		return "127.0.0.1:53"
	}
	ip := net.ParseIP(conf[0])
	if ip == nil {
		return "127.0.0.1:53"
	}
	if ip.To4() == nil {
		return fmt.Sprintf("[%s]:53", ip.String())
	}
	return ip.String() + ":53"
}
