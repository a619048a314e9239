package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"netwatch.dev/netwatch/internal/classify"
	"netwatch.dev/netwatch/internal/netiface"
	"netwatch.dev/netwatch/internal/scan"
	"netwatch.dev/netwatch/internal/store"
)

func (s *Server) handleEndpointsTable(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.ListEndpoints(r.Context())
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list endpoints")
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDNSEntries(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.ListDNSEntries(r.Context())
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list dns entries")
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) handleInternet(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.ListInternetUsage(r.Context())
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list internet usage")
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.ListProtocolTotals(r.Context())
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list protocol totals")
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (s *Server) handleProtocolEndpoints(w http.ResponseWriter, r *http.Request) {
	protocol := strings.TrimPrefix(r.URL.Path, "/api/protocol/")
	if protocol == "" {
		WriteError(w, http.StatusBadRequest, "protocol is required")
		return
	}
	ids, err := s.engine.ListEndpointsByProtocol(r.Context(), protocol)
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list protocol endpoints")
		return
	}
	WriteJSON(w, http.StatusOK, ids)
}

// handleEndpointDetailOrMutation dispatches /api/endpoint/{id}[/action] by
// method and trailing path segment.
func (s *Server) handleEndpointDetailOrMutation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/endpoint/")
	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid endpoint id")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		s.getEndpointDetail(w, r, id)
	case r.Method == http.MethodGet && action == "details":
		s.getEndpointDetail(w, r, id)
	case r.Method == http.MethodPost && action == "classify":
		s.postClassify(w, r, id)
	case r.Method == http.MethodPost && action == "rename":
		s.postRename(w, r, id)
	case r.Method == http.MethodPost && action == "vendor":
		s.postVendor(w, r, id)
	case r.Method == http.MethodPost && action == "model":
		s.postModel(w, r, id)
	case r.Method == http.MethodPost && action == "merge":
		s.postMerge(w, r, id)
	case r.Method == http.MethodPost && action == "probe":
		s.postProbe(w, r, id)
	case r.Method == http.MethodDelete && action == "":
		s.deleteEndpoint(w, r, id)
	case r.Method == http.MethodPost && action == "delete":
		s.deleteEndpoint(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "unknown endpoint route")
	}
}

func (s *Server) getEndpointDetail(w http.ResponseWriter, r *http.Request, id int64) {
	detail, err := s.engine.GetEndpointDetail(r.Context(), id)
	if err == store.ErrEndpointNotFound {
		WriteError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not load endpoint")
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) postClassify(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		DeviceType string `json:"device_type"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if req.DeviceType == "" {
		WriteError(w, http.StatusBadRequest, "device_type is required")
		return
	}
	if err := s.engine.SetClassification(r.Context(), id, req.DeviceType); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not set classification")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) postRename(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Name string `json:"name"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetCustomName(r.Context(), id, req.Name); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not rename endpoint")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) postVendor(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Vendor string `json:"vendor"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetCustomVendor(r.Context(), id, req.Vendor); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not set vendor")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) postModel(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Model string `json:"model"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if err := s.engine.SetCustomModel(r.Context(), id, classify.NormalizeModel(req.Model)); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not set model")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) postMerge(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		LoserID int64 `json:"loser_id"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if err := s.engine.MergeEndpoints(r.Context(), id, req.LoserID); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not merge endpoints")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// postProbe re-triggers hostname discovery for the endpoint's most
// recently observed IP, scoped by stored attribute history rather than a
// caller-supplied address.
func (s *Server) postProbe(w http.ResponseWriter, r *http.Request, id int64) {
	detail, err := s.engine.GetEndpointDetail(r.Context(), id)
	if err == store.ErrEndpointNotFound {
		WriteError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not load endpoint")
		return
	}

	var ip string
	for _, a := range detail.Attributes {
		if a.IP != "" {
			ip = a.IP
			break
		}
	}
	if ip == "" {
		WriteError(w, http.StatusBadRequest, "endpoint has no known ip to probe")
		return
	}

	s.prober.Probe(ip)
	time.Sleep(200 * time.Millisecond) // best-effort: give the in-flight probe a moment to land
	hostname, found := s.dnsCache.LookupIP(ip)
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "ip": ip, "hostname": hostname, "found": found})
}

func (s *Server) deleteEndpoint(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.engine.DeleteEndpoint(r.Context(), id); err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not delete endpoint")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	keys := []string{"cleanup_interval_seconds", "data_retention_days", "active_threshold_seconds", "auto_scan_interval_minutes"}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok, err := s.engine.GetSetting(r.Context(), k); err == nil && ok {
			out[k] = v
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !BindJSON(w, r, &req) {
		return
	}
	for k, v := range req {
		if err := s.engine.ApplySetting(r.Context(), k, v); err != nil {
			logHandlerError(s.logger, r.URL.Path, err)
			WriteError(w, http.StatusInternalServerError, "could not apply setting")
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCapturePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	s.paused.Store(req.Paused)
	if s.pauser != nil {
		s.pauser.SetPaused(req.Paused)
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true, "paused": req.Paused})
}

func (s *Server) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"paused":         s.paused.Load(),
		"dropped_total":  s.capture.DroppedTotal(),
		"interfaces":     s.capture.Interfaces(),
	})
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	infos, err := netiface.List()
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not list interfaces")
		return
	}
	WriteJSON(w, http.StatusOK, infos)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	up := scan.Ping(req.IP)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true, "up": up})
}

func (s *Server) handleProbeHostname(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	s.prober.Probe(req.IP)
	time.Sleep(200 * time.Millisecond) // best-effort: give the in-flight probe a moment to land
	hostname, ok := s.dnsCache.LookupIP(req.IP)
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "hostname": hostname, "found": ok})
}

func (s *Server) handleProbeNetBIOS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	name, ok := scan.ProbeNetBIOS(req.IP)
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "name": name, "found": ok})
}

func (s *Server) handlePortScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP    string `json:"ip"`
		Ports []int  `json:"ports"`
	}
	if !BindJSON(w, r, &req) {
		return
	}
	if req.IP == "" {
		WriteError(w, http.StatusBadRequest, "ip is required")
		return
	}
	if len(req.Ports) == 0 {
		req.Ports = []int{22, 80, 139, 443, 445, 554, 1900, 5000, 8008, 8060, 8080, 8443, 9100}
	}
	open := make([]int, 0, len(req.Ports))
	for _, p := range req.Ports {
		if scan.ProbePort(req.IP, p) {
			open = append(open, p)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "open_ports": open})
}
