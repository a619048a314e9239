// Package scan implements the active discovery engine: a cooperative,
// cancellable multi-phase sweep (ARP, IPv6 ND, ICMP, TCP port probe, SSDP,
// NetBIOS, SNMP) that feeds its findings back into the same endpoint store
// the passive capture pipeline writes to.
package scan

import (
	"context"
	"sync"
	"time"

	"netwatch.dev/netwatch/internal/logging"
)

// Phase identifies one discovery mode.
type Phase string

const (
	PhaseARP     Phase = "arp"
	PhaseND      Phase = "nd"
	PhaseICMP    Phase = "icmp"
	PhasePort    Phase = "port"
	PhaseSSDP    Phase = "ssdp"
	PhaseNetBIOS Phase = "netbios"
	PhaseSNMP    Phase = "snmp"

	PhaseIdle      Phase = "idle"
	PhaseCancelled Phase = "cancelled"
	PhaseComplete  Phase = "complete"
)

// allPhases is the default phase order when the caller requests no
// specific subset.
var allPhases = []Phase{PhaseARP, PhaseND, PhaseICMP, PhasePort, PhaseSSDP, PhaseNetBIOS, PhaseSNMP}

// Finding is one discovery result emitted during a scan, persisted via the
// caller-supplied Recorder and merged into the endpoint table by the
// identity resolver.
type Finding struct {
	Phase   Phase
	IP      string
	MAC     string
	Detail  string // e.g. open port, friendlyName, sysDescr
	AtTime  time.Time
}

// Recorder persists one finding and folds it into the endpoint table.
type Recorder interface {
	RecordFinding(ctx context.Context, started time.Time, f Finding) error
}

// Capabilities reports which phases this host can currently run.
type Capabilities struct {
	ARP     bool
	ND      bool
	ICMP    bool
	Port    bool
	SSDP    bool
	NetBIOS bool
	SNMP    bool
}

// State is the process-wide scan-state singleton. Start, Stop and the
// running scan goroutine mutate it under mu; readers take a consistent
// snapshot under mu.
type State struct {
	mu              sync.Mutex
	running         bool
	currentPhase    Phase
	progressPercent int
	discoveredCount int
	lastScanTime    time.Time
	cancelRequested bool
}

// Snapshot is a read-only copy of State for API consumers.
type Snapshot struct {
	Running         bool
	CurrentPhase    Phase
	ProgressPercent int
	DiscoveredCount int
	LastScanTime    time.Time
}

func (s *State) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Running:         s.running,
		CurrentPhase:    s.currentPhase,
		ProgressPercent: s.progressPercent,
		DiscoveredCount: s.discoveredCount,
		LastScanTime:    s.lastScanTime,
	}
}

// Engine runs at most one scan at a time across the requested phases.
type Engine struct {
	state    State
	recorder Recorder
	logger   *logging.Logger

	ifaceNames func() []string // local interfaces to sweep, injected for testability
}

// New creates a scan Engine. ifaceNames returns the set of interfaces to
// sweep for link-local phases (ARP, ND); it is called fresh on each scan
// start so interface hot-plug is picked up.
func New(recorder Recorder, logger *logging.Logger, ifaceNames func() []string) *Engine {
	return &Engine{recorder: recorder, logger: logger, ifaceNames: ifaceNames}
}

// Status returns a consistent snapshot of the scan-state singleton.
func (e *Engine) Status() Snapshot {
	return e.state.snapshot()
}

// Capabilities reports which phases are runnable given current privilege.
func (e *Engine) Capabilities() Capabilities {
	rawOK := hasRawSocketCapability()
	return Capabilities{
		ARP: rawOK, ND: rawOK, ICMP: true, // pro-bing falls back to unprivileged ICMP
		Port: true, SSDP: true, NetBIOS: true, SNMP: true,
	}
}

// Start launches a scan over the requested phases (nil/empty means all).
// It rejects a second concurrent start while one scan is already running.
func (e *Engine) Start(ctx context.Context, phases []Phase) error {
	e.state.mu.Lock()
	if e.state.running {
		e.state.mu.Unlock()
		return ErrScanAlreadyRunning
	}
	e.state.running = true
	e.state.cancelRequested = false
	e.state.discoveredCount = 0
	e.state.progressPercent = 0
	e.state.currentPhase = PhaseIdle
	e.state.lastScanTime = time.Now()
	started := e.state.lastScanTime
	e.state.mu.Unlock()

	if len(phases) == 0 {
		phases = allPhases
	}

	go e.run(ctx, started, phases)
	return nil
}

// Stop requests cooperative cancellation. The running phase observes the
// flag at its next host/packet iteration boundary.
func (e *Engine) Stop() {
	e.state.mu.Lock()
	e.state.cancelRequested = true
	e.state.mu.Unlock()
}

func (e *Engine) cancelled() bool {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.cancelRequested
}

func (e *Engine) setPhase(p Phase) {
	e.state.mu.Lock()
	e.state.currentPhase = p
	e.state.mu.Unlock()
}

func (e *Engine) setProgress(pct int) {
	e.state.mu.Lock()
	e.state.progressPercent = pct
	e.state.mu.Unlock()
}

func (e *Engine) addDiscovered(n int) {
	e.state.mu.Lock()
	e.state.discoveredCount += n
	e.state.mu.Unlock()
}

func (e *Engine) finish(cancelled bool) {
	e.state.mu.Lock()
	e.state.running = false
	if cancelled {
		e.state.currentPhase = PhaseCancelled
	} else {
		e.state.currentPhase = PhaseComplete
	}
	e.state.progressPercent = 100
	e.state.mu.Unlock()
}

func (e *Engine) emit(ctx context.Context, started time.Time, f Finding) {
	if e.recorder == nil {
		return
	}
	f.AtTime = time.Now()
	if err := e.recorder.RecordFinding(ctx, started, f); err != nil {
		e.logger.Warn("scan finding could not be recorded", "phase", f.Phase, "ip", f.IP, "error", err)
		return
	}
	e.addDiscovered(1)
}

func (e *Engine) run(ctx context.Context, started time.Time, phases []Phase) {
	total := len(phases)
	for i, phase := range phases {
		if e.cancelled() {
			e.finish(true)
			return
		}
		e.setPhase(phase)
		e.runPhase(ctx, started, phase)
		e.setProgress((i + 1) * 100 / total)
	}
	e.finish(e.cancelled())
}

func (e *Engine) runPhase(ctx context.Context, started time.Time, phase Phase) {
	switch phase {
	case PhaseARP:
		e.runARP(ctx, started)
	case PhaseND:
		e.runND(ctx, started)
	case PhaseICMP:
		e.runICMP(ctx, started)
	case PhasePort:
		e.runPortScan(ctx, started)
	case PhaseSSDP:
		e.runSSDP(ctx, started)
	case PhaseNetBIOS:
		e.runNetBIOS(ctx, started)
	case PhaseSNMP:
		e.runSNMP(ctx, started)
	}
}
