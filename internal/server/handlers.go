package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/search"
	"github.com/idelchi/jolt/internal/sysinfo"
)


// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Pattern      *string `json:"pattern,omitempty"`
	Path         string  `json:"path"`
	ShowFullPath *bool   `json:"show_full_path,omitempty"`
}

// LargestRequest is the body of POST /file/largest. An empty path scans every mounted volume.
type LargestRequest struct {
	Path  string `json:"path"`
	Count *int   `json:"count,omitempty"`
}

// CPUResponse is the body of GET /info/cpu.
type CPUResponse struct {
	CPUs []sysinfo.CPU `json:"cpus"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Jolt-Version", s.version)
	fmt.Fprintln(w, "Hello, World!")
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	snap, err := s.inspector.Diagnose(r.Context())
	if err != nil {
		s.internalError(w, r, "collecting diagnostics", err)

		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCPU(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	cpus, err := s.inspector.CPUs(r.Context())
	if err != nil {
		s.internalError(w, r, "reading cpu usage", err)

		return
	}

	respondJSON(w, http.StatusOK, CPUResponse{CPUs: cpus})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	mem, err := s.inspector.Memory(r.Context())
	if err != nil {
		s.internalError(w, r, "reading memory usage", err)

		return
	}

	respondJSON(w, http.StatusOK, mem)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Path == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "path is required", false, nil)

		return
	}

	opt := search.Options{
		Path:     req.Path,
		Excludes: s.finder.Excludes,
		Workers:  s.search.Workers,
	}

	if req.Pattern != nil {
		opt.Term = *req.Pattern
	}

	if req.ShowFullPath != nil {
		opt.ShowFullPath = *req.ShowFullPath
	}

	res, err := search.Run(r.Context(), opt)
	if err != nil {
		if errors.Is(err, finder.ErrInvalidPath) {
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false,
				map[string]any{"path": req.Path})

			return
		}

		s.internalError(w, r, "searching", err)

		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleLargest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req LargestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count := s.cfg.DefaultCount
	if req.Count != nil && *req.Count > 0 {
		count = *req.Count
	}

	if count > finder.MaxCount {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			fmt.Sprintf("count must not exceed %d", finder.MaxCount), false, map[string]any{"count": count})

		return
	}

	opt, err := s.finder.Options(req.Path)
	if err != nil {
		s.internalError(w, r, "building scan options", err)

		return
	}

	opt.Count = count
	opt.ProgressInterval = s.cfg.ProgressInterval

	requestID := requestIDFrom(r.Context())
	progress := &scanProgress{}
	start := time.Now()

	res, err := s.scan(r.Context(), opt, func(files, _ int64) {
		progress.advance(files)
		slog.Info("scan progress", "requestID", requestID, "path", req.Path, "files", files)
	})
	if res != nil {
		progress.advance(res.FileCount)
	}

	switch {
	case err == nil:
		scanDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		slog.Info("scan finished",
			"requestID", requestID,
			"path", req.Path,
			"files", res.FileCount,
			"peakTasks", res.PeakTasks,
			"elapsed", res.Elapsed.String(),
		)
		respondJSON(w, http.StatusOK, res)
	case finder.IsPartial(err):
		scanDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
		slog.Warn("scan cancelled", "requestID", requestID, "path", req.Path, "error", err)
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeInternalError,
			"scan cancelled", true, nil)
	case errors.Is(err, finder.ErrInvalidPath), errors.Is(err, finder.ErrNoReadableRoots),
		errors.Is(err, finder.ErrNoRoots):
		scanDuration.WithLabelValues("rejected").Observe(time.Since(start).Seconds())
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false,
			map[string]any{"path": req.Path})
	default:
		scanDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		s.internalError(w, r, "scanning", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, doing string, err error) {
	slog.Error(doing+" failed", "requestID", requestIDFrom(r.Context()), "error", err)
	writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError,
		fmt.Sprintf("%s failed", doing), true, map[string]any{"error": err.Error()})
}
