package api

import (
	"net/http"

	"netwatch.dev/netwatch/internal/scan"
)

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phases []string `json:"scan_types"`
	}
	if r.ContentLength != 0 {
		if !BindJSON(w, r, &req) {
			return
		}
	}

	phases := make([]scan.Phase, 0, len(req.Phases))
	for _, p := range req.Phases {
		phases = append(phases, scan.Phase(p))
	}

	if err := s.scanner.Start(r.Context(), phases); err == scan.ErrScanAlreadyRunning {
		WriteError(w, http.StatusConflict, "a scan is already running")
		return
	} else if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		WriteError(w, http.StatusInternalServerError, "could not start scan")
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

func (s *Server) handleScanStop(w http.ResponseWriter, r *http.Request) {
	s.scanner.Stop()
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.scanner.Status())
}

func (s *Server) handleScanCapabilities(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.scanner.Capabilities())
}
