package api

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netwatch.dev/netwatch/internal/capture"
	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/dnscache"
	"netwatch.dev/netwatch/internal/logging"
	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

// routeDeadline bounds every handler to the per-route ceiling the scheduler
// promises: no HTTP request holds a pooled reader connection past this.
const routeDeadline = 10 * time.Second

// Pauser suspends and resumes dissection of captured frames. The ingest
// engine implements this; the API only needs to toggle it.
type Pauser interface {
	SetPaused(paused bool)
}

// Server serves the read-only query API and scan/capture control routes.
// It binds to loopback only; there is no remote management surface.
type Server struct {
	engine     *store.Engine
	scanner    *scan.Engine
	capture    *capture.Manager
	dnsCache   *dnscache.Cache
	prober     *dnscache.Prober
	classifier *classify.Classifier
	pauser     Pauser
	logger     *logging.Logger

	paused atomic.Bool

	mux *http.ServeMux
	ws  *wsHub
}

// New builds a Server wired to the running daemon's components.
func New(engine *store.Engine, scanner *scan.Engine, cap *capture.Manager, dnsCache *dnscache.Cache, classifier *classify.Classifier, pauser Pauser, logger *logging.Logger) *Server {
	s := &Server{
		engine:     engine,
		scanner:    scanner,
		capture:    cap,
		dnsCache:   dnsCache,
		prober:     dnscache.NewProber(dnsCache, dnscache.SystemResolver()),
		classifier: classifier,
		pauser:     pauser,
		logger:     logger,
		ws:         newWSHub(),
	}
	s.mux = http.NewServeMux()
	s.routes()
	go s.ws.run()
	go s.ws.broadcastLoop(s.scanner)
	return s
}

// ListenAndServe binds to 127.0.0.1:port. This daemon has no remote
// management surface, so the listener never accepts non-loopback traffic.
func (s *Server) ListenAndServe(port int) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", itoa(port)),
		Handler:           s.withDeadline(s.mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) withDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), routeDeadline)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/endpoints/table", s.handleEndpointsTable)
	s.mux.HandleFunc("GET /api/endpoint/", s.handleEndpointDetailOrMutation)
	s.mux.HandleFunc("POST /api/endpoint/", s.handleEndpointDetailOrMutation)
	s.mux.HandleFunc("DELETE /api/endpoint/", s.handleEndpointDetailOrMutation)

	s.mux.HandleFunc("GET /api/dns-entries", s.handleDNSEntries)
	s.mux.HandleFunc("GET /api/internet", s.handleInternet)
	s.mux.HandleFunc("GET /api/protocols", s.handleProtocols)
	s.mux.HandleFunc("GET /api/protocol/", s.handleProtocolEndpoints)

	s.mux.HandleFunc("POST /api/scan/start", s.handleScanStart)
	s.mux.HandleFunc("POST /api/scan/stop", s.handleScanStop)
	s.mux.HandleFunc("GET /api/scan/status", s.handleScanStatus)
	s.mux.HandleFunc("GET /api/scan/capabilities", s.handleScanCapabilities)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/settings", s.handlePostSettings)

	s.mux.HandleFunc("POST /api/capture/pause", s.handleCapturePause)
	s.mux.HandleFunc("GET /api/capture/status", s.handleCaptureStatus)

	s.mux.HandleFunc("POST /api/ping", s.handlePing)
	s.mux.HandleFunc("POST /api/probe-hostname", s.handleProbeHostname)
	s.mux.HandleFunc("POST /api/probe-netbios", s.handleProbeNetBIOS)
	s.mux.HandleFunc("POST /api/port-scan", s.handlePortScan)

	s.mux.HandleFunc("GET /api/interfaces", s.handleInterfaces)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /api/ws/scan", s.handleScanWS)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
