// Package capture opens raw per-interface packet sources and publishes
// frames onto a single bounded channel for the dissector pool.
package capture

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdlayher/packet"

	"netwatch.dev/netwatch/internal/errs"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/metrics"
	"netwatch.dev/netwatch/internal/netiface"
)

// Frame is one captured link-layer frame, tagged with its source interface
// and the wall-clock time capture observed it.
type Frame struct {
	Interface string
	Data      []byte
	Timestamp time.Time
}

// DefaultBufferSize matches CHANNEL_BUFFER_SIZE's documented default.
const DefaultBufferSize = 10_000_000

// Source reads raw frames from one interface and publishes them to a
// shared output channel, dropping the oldest buffered frame on overflow
// rather than blocking the read loop.
type Source struct {
	iface  string
	conn   *packet.Conn
	logger *logging.Logger

	dropped uint64
}

// etherTypeAll is ETH_P_ALL: the socket receives frames of every ethertype.
const etherTypeAll = 0x0003

// Open starts a raw AF_PACKET listener on iface for all ethertypes. It
// returns errs.ErrCaptureUnavailable, wrapped with the underlying OS error,
// if the interface cannot be opened (missing privilege, interface down,
// unsupported platform).
func Open(ifaceName string) (*Source, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, errors.Join(errs.ErrCaptureUnavailable, err)
	}

	conn, err := packet.Listen(ifi, packet.Raw, etherTypeAll, nil)
	if err != nil {
		return nil, errors.Join(errs.ErrCaptureUnavailable, err)
	}

	return &Source{
		iface:  ifaceName,
		conn:   conn,
		logger: logging.WithComponent("capture").WithFields(map[string]any{"iface": ifaceName}),
	}, nil
}

// Close releases the underlying raw socket.
func (s *Source) Close() error {
	return s.conn.Close()
}

// Dropped returns the count of frames dropped because out was full.
func (s *Source) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Run reads frames until ctx is cancelled, publishing each onto out. When
// out is full, the oldest buffered frame is discarded to make room and
// counted as dropped; capture itself is never blocked by a slow dissector
// pool.
func (s *Source) Run(ctx context.Context, out chan Frame) {
	reg := metrics.Get()
	capturedCtr := reg.PacketsCaptured.WithLabelValues(s.iface)
	droppedCtr := reg.PacketsDropped.WithLabelValues(s.iface)
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if strings.Contains(err.Error(), "closed network connection") {
				return
			}
			continue
		}

		frame := Frame{
			Interface: s.iface,
			Data:      append([]byte(nil), buf[:n]...),
			Timestamp: time.Now(),
		}
		capturedCtr.Inc()

		select {
		case out <- frame:
		default:
			select {
			case <-out:
				atomic.AddUint64(&s.dropped, 1)
				droppedCtr.Inc()
			default:
			}
			select {
			case out <- frame:
			default:
				atomic.AddUint64(&s.dropped, 1)
				droppedCtr.Inc()
			}
		}
	}
}

// Manager opens and runs a Source per monitorable interface, fanning all
// frames into one shared channel.
type Manager struct {
	out     chan Frame
	sources []*Source
	wg      sync.WaitGroup
	logger  *logging.Logger
}

// NewManager opens sources for the given interface names (or, if empty,
// every auto-selected monitorable interface) and returns a Manager. At
// least one interface must open successfully; otherwise the daemon has no
// capture-capable interface and ErrCaptureUnavailable is returned.
func NewManager(ifaceNames []string, bufferSize int) (*Manager, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	logger := logging.WithComponent("capture")

	if len(ifaceNames) == 0 {
		infos, err := netiface.List()
		if err != nil {
			return nil, errors.Join(errs.ErrCaptureUnavailable, err)
		}
		for _, info := range infos {
			ifaceNames = append(ifaceNames, info.Name)
		}
	}

	m := &Manager{out: make(chan Frame, bufferSize), logger: logger}
	for _, name := range ifaceNames {
		src, err := Open(name)
		if err != nil {
			logger.Warn("interface unavailable for capture", "iface", name, "err", err)
			continue
		}
		m.sources = append(m.sources, src)
	}

	if len(m.sources) == 0 {
		return nil, errs.ErrCaptureUnavailable
	}
	return m, nil
}

// Start launches one goroutine per opened interface.
func (m *Manager) Start(ctx context.Context) {
	for _, src := range m.sources {
		m.wg.Add(1)
		go func(s *Source) {
			defer m.wg.Done()
			s.Run(ctx, m.out)
		}(src)
	}
}

// Frames returns the shared channel all interfaces publish to.
func (m *Manager) Frames() <-chan Frame {
	return m.out
}

// Stop waits for every source's read loop to return, then closes each
// socket. Callers should cancel the context passed to Start before calling
// Stop so the loops actually exit.
func (m *Manager) Stop() {
	m.wg.Wait()
	for _, src := range m.sources {
		src.Close()
	}
}

// DroppedTotal sums the drop counters across all interfaces.
func (m *Manager) DroppedTotal() uint64 {
	var total uint64
	for _, src := range m.sources {
		total += src.Dropped()
	}
	return total
}

// Interfaces returns the names of interfaces currently being captured.
func (m *Manager) Interfaces() []string {
	names := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		names = append(names, s.iface)
	}
	return names
}
