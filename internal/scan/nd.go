package scan

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/mdlayher/ndp"

	"netwatch.dev/netwatch/internal/errs"
)

var allNodesMulticast = netip.MustParseAddr("ff02::1")

func (e *Engine) runND(ctx context.Context, started time.Time) {
	if !hasRawSocketCapability() {
		e.logger.Warn("ipv6 nd sweep skipped, raw sockets unavailable", "error", errs.ErrScanUnavailable)
		return
	}
	for _, ifaceName := range e.ifaceNames() {
		if e.cancelled() {
			return
		}
		e.ndSweepInterface(ctx, started, ifaceName)
	}
}

func (e *Engine) ndSweepInterface(ctx context.Context, started time.Time, ifaceName string) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return
	}
	conn, _, err := ndp.Listen(ifi, ndp.LinkLocal)
	if err != nil {
		return
	}
	defer conn.Close()

	ns := &ndp.NeighborSolicitation{
		TargetAddress: allNodesMulticast,
		Options: []ndp.Option{
			&ndp.LinkLayerAddress{Direction: ndp.Source, Addr: ifi.HardwareAddr},
		},
	}
	if err := conn.WriteTo(ns, nil, allNodesMulticast); err != nil {
		return
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.cancelled() {
			return
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		msg, _, src, err := conn.ReadFrom()
		if err != nil {
			continue
		}
		na, ok := msg.(*ndp.NeighborAdvertisement)
		if !ok {
			continue
		}
		mac := linkLayerMAC(na.Options)
		if mac == "" {
			continue
		}
		e.emit(ctx, started, Finding{Phase: PhaseND, IP: src.String(), MAC: mac})
	}
}

func linkLayerMAC(opts []ndp.Option) string {
	for _, opt := range opts {
		if lla, ok := opt.(*ndp.LinkLayerAddress); ok {
			return lla.Addr.String()
		}
	}
	return ""
}
