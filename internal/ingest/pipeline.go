// Package ingest wires the capture, dissect, identity, flowtable, dnscache,
// and classify components into one running pipeline: raw frames in,
// endpoint-keyed connection rows and identity attributes out.
package ingest

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"time"

	"netwatch.dev/netwatch/internal/capture"
	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/dissect"
	"netwatch.dev/netwatch/internal/dnscache"
	"netwatch.dev/netwatch/internal/errs"
	"netwatch.dev/netwatch/internal/flowtable"
	"netwatch.dev/netwatch/internal/identity"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/metrics"
)

// workerCount bounds how many goroutines drain the capture channel and run
// the dissector concurrently: one fewer than the CPU count, and at least
// one.
var workerCount = max(1, runtime.NumCPU()-1)

const flushInterval = 2 * time.Second

// Writer is the storage surface the pipeline flushes aggregated rows and
// mDNS announcements to. internal/store.Engine implements it.
type Writer interface {
	FlushRows(ctx context.Context, rows []flowtable.Row) error
	RecordMDNS(ctx context.Context, ip, hostname string, services []string) error
	SetAutoDeviceType(ctx context.Context, id int64, deviceType string) error
	SetVendorModel(ctx context.Context, id int64, vendor, model string) error
}

// Engine runs the capture-to-storage pipeline.
type Engine struct {
	capture    *capture.Manager
	dissector  *dissect.Dissector
	resolver   *identity.Resolver
	flows      *flowtable.Table
	dnsCache   *dnscache.Cache
	classifier *classify.Classifier
	writer     Writer
	logger     *logging.Logger
	metrics    *metrics.Registry

	paused bool
	pauseMu sync.RWMutex
}

// New builds an Engine. paused is consulted by the dissector on every frame.
func New(cap *capture.Manager, resolver *identity.Resolver, flows *flowtable.Table, dnsCache *dnscache.Cache, classifier *classify.Classifier, writer Writer, logger *logging.Logger) *Engine {
	e := &Engine{
		capture:    cap,
		resolver:   resolver,
		flows:      flows,
		dnsCache:   dnsCache,
		classifier: classifier,
		writer:     writer,
		logger:     logger,
		metrics:    metrics.Get(),
	}
	e.dissector = dissect.New(e.isPaused)
	return e
}

// SetPaused toggles whether incoming frames are dissected.
func (e *Engine) SetPaused(paused bool) {
	e.pauseMu.Lock()
	e.paused = paused
	e.pauseMu.Unlock()
}

func (e *Engine) isPaused() bool {
	e.pauseMu.RLock()
	defer e.pauseMu.RUnlock()
	return e.paused
}

// Run starts the capture sources, the dissector worker pool, and the flush
// ticker, and blocks until ctx is cancelled. Callers should then call Drain
// to flush any remaining aggregated rows before shutting down storage.
func (e *Engine) Run(ctx context.Context) {
	e.capture.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx)
		}()
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			e.capture.Stop()
			return
		case <-ticker.C:
			e.flush(context.Background())
		}
	}
}

// Drain flushes whatever rows remain dirty in the connection aggregator.
// Call this once after Run has returned.
func (e *Engine) Drain(ctx context.Context) {
	e.flush(ctx)
}

func (e *Engine) worker(ctx context.Context) {
	frames := e.capture.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			obs, err := e.dissector.Dissect(f.Interface, f.Data, f.Timestamp)
			if err != nil {
				e.metrics.DissectErrors.Inc()
				continue
			}
			if obs == nil {
				continue
			}
			e.handle(ctx, obs)
		}
	}
}

func (e *Engine) handle(ctx context.Context, obs *dissect.Observation) {
	if obs.ARP != nil {
		e.resolveObservation(ctx, identity.Observation{
			MAC: obs.ARP.MAC, IP: obs.ARP.IP, InterfaceID: obs.Interface, Timestamp: obs.Timestamp,
		})
	}
	for _, nb := range obs.DNS {
		e.learnHostname(ctx, obs, nb.Hostname, nb.IP)
	}
	if obs.MDNS != nil {
		e.learnHostname(ctx, obs, obs.MDNS.Hostname, obs.MDNS.IP)
		if err := e.writer.RecordMDNS(ctx, obs.MDNS.IP, obs.MDNS.Hostname, obs.MDNS.Services); err != nil {
			e.logger.Warn("record mdns failed", "error", err)
		}
		e.classifyByMDNS(ctx, obs.MDNS.IP, obs.MDNS.Services)
	}
	if obs.SNI != nil {
		e.learnHostname(ctx, obs, obs.SNI.Hostname, obs.SNI.DstIP)
	}
	if obs.HTTP != nil {
		e.learnHostname(ctx, obs, obs.HTTP.Hostname, obs.HTTP.DstIP)
	}
	if obs.DHCP != nil {
		e.learnDHCP(ctx, obs)
	}
	if obs.Flow != nil {
		e.observeFlow(ctx, obs)
	}
}

// learnDHCP resolves the (mac, ip, hostname) binding from a DHCP REQUEST
// or ACK. Unlike the other name sources, a DHCP binding carries a MAC
// directly, so it resolves with MAC authority rather than going through
// the weaker IP-only path the DNS/mDNS/SNI/HTTP sources use.
func (e *Engine) learnDHCP(ctx context.Context, obs *dissect.Observation) {
	d := obs.DHCP
	if d.Hostname != "" && d.IP != "" {
		e.dnsCache.Put(d.Hostname, d.IP)
		e.metrics.DNSCacheSize.Set(float64(e.dnsCache.Len()))
	}
	e.resolveObservation(ctx, identity.Observation{
		MAC: d.MAC, IP: d.IP, Hostname: d.Hostname, InterfaceID: obs.Interface, Timestamp: obs.Timestamp,
	})
}

func (e *Engine) learnHostname(ctx context.Context, obs *dissect.Observation, hostname, ip string) {
	if hostname == "" || ip == "" {
		return
	}
	if _, found := e.dnsCache.LookupIP(ip); !found {
		e.metrics.DNSCacheMisses.Inc()
	} else {
		e.metrics.DNSCacheHits.Inc()
	}
	e.dnsCache.Put(hostname, ip)
	e.metrics.DNSCacheSize.Set(float64(e.dnsCache.Len()))

	e.resolveObservation(ctx, identity.Observation{
		IP: ip, Hostname: hostname, InterfaceID: obs.Interface, Timestamp: obs.Timestamp,
	})
}

func (e *Engine) resolveObservation(ctx context.Context, obs identity.Observation) (int64, bool) {
	id, err := e.resolver.Resolve(ctx, obs)
	if err != nil {
		e.logger.Warn("identity resolve failed", "error", err, "ip", obs.IP, "mac", obs.MAC)
		return 0, false
	}
	return id, true
}

func (e *Engine) classifyByMDNS(ctx context.Context, ip string, services []string) {
	hostname, _ := e.dnsCache.LookupIP(ip)
	dt := e.classifier.Classify(classify.Input{MDNSServices: services, Hostname: hostname, IP: ip})
	id, ok := e.resolveObservation(ctx, identity.Observation{IP: ip, Timestamp: time.Now()})
	if !ok {
		return
	}
	if err := e.writer.SetAutoDeviceType(ctx, id, string(dt)); err != nil {
		e.logger.Warn("set auto device type failed", "error", err)
	}
}

func (e *Engine) observeFlow(ctx context.Context, obs *dissect.Observation) {
	fl := obs.Flow
	srcID, ok := e.resolveObservation(ctx, identity.Observation{
		MAC: fl.SrcMAC, IP: fl.SrcIP, InterfaceID: obs.Interface, Timestamp: obs.Timestamp,
	})
	if !ok {
		return
	}
	dstID, ok := e.resolveObservation(ctx, identity.Observation{
		MAC: fl.DstMAC, IP: fl.DstIP, InterfaceID: obs.Interface, Timestamp: obs.Timestamp,
	})
	if !ok {
		return
	}

	key := flowtable.Key{
		SrcEndpointID: srcID, DstEndpointID: dstID,
		Protocol: fl.Protocol, SrcPort: fl.SrcPort, DstPort: fl.DstPort,
	}
	e.flows.Observe(key, fl.Bytes, obs.Timestamp)

	if ok := e.classifyEndpointIP(ctx, dstID, fl.DstIP); !ok {
		return
	}
}

// classifyEndpointIP applies the IP-membership fallback classification
// rule (private -> local, public -> internet) for an endpoint that hasn't
// been classified by a stronger signal yet.
func (e *Engine) classifyEndpointIP(ctx context.Context, endpointID int64, ip string) bool {
	if ip == "" {
		return false
	}
	dt := e.classifier.Classify(classify.Input{IP: ip})
	if err := e.writer.SetAutoDeviceType(ctx, endpointID, string(dt)); err != nil {
		e.logger.Warn("set auto device type failed", "error", err)
		return false
	}
	return true
}

func (e *Engine) flush(ctx context.Context) {
	rows := e.flows.FlushDirty()
	if len(rows) == 0 {
		return
	}
	start := time.Now()
	err := e.writer.FlushRows(ctx, rows)
	for backoff := 100 * time.Millisecond; errors.Is(err, errs.ErrDbBusy) && backoff <= 2*time.Second; backoff *= 2 {
		time.Sleep(backoff)
		err = e.writer.FlushRows(ctx, rows)
	}
	if err != nil {
		e.metrics.WriterFlushErrors.Inc()
		e.logger.Warn("flush rows failed", "error", err, "count", strconv.Itoa(len(rows)))
		return
	}
	e.metrics.WriterFlushLatency.Observe(time.Since(start).Seconds())
	hits, misses, size := e.flows.Stats()
	_ = hits
	_ = misses
	e.metrics.WriterQueueDepth.Set(float64(size))
}
