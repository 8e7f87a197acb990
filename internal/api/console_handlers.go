package api

import (
	"net/http"

	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
)

// ConsoleView 是控制台页面的完整视图。
type ConsoleView struct {
	State     console.State       `json:"state"`
	RunStatus dashboard.RunStatus `json:"run_status"`
	Capacity  int                 `json:"capacity"`
	Entries   []console.Entry     `json:"entries"`
}

// ToggleResult 描述开始/停止请求是否改变了状态。
type ToggleResult struct {
	Changed bool          `json:"changed"`
	State   console.State `json:"state"`
}

func (s *Server) consoleView() ConsoleView {
	state := s.deps.Runner.Snapshot()
	log := s.deps.Runner.Log()
	return ConsoleView{
		State:     state,
		RunStatus: dashboard.RunStatusOf(state),
		Capacity:  log.Capacity(),
		Entries:   log.Entries(),
	}
}

func (s *Server) handleConsoleState(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	writeJSON(w, http.StatusOK, s.consoleView())
}

func (s *Server) handleConsoleStart(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	changed := s.deps.Runner.Start(s.baseCtx)
	writeJSON(w, http.StatusOK, ToggleResult{Changed: changed, State: s.deps.Runner.Snapshot()})
}

func (s *Server) handleConsoleStop(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	changed := s.deps.Runner.Stop()
	writeJSON(w, http.StatusOK, ToggleResult{Changed: changed, State: s.deps.Runner.Snapshot()})
}

func (s *Server) handleConsoleRetry(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	writeJSON(w, http.StatusCreated, s.deps.Runner.RetryLastStep())
}

// handleListLogs 支持 ?category= 过滤，便于 CLI 只看错误或警告。
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	entries := s.deps.Runner.Log().Entries()
	raw := r.URL.Query().Get("category")
	if raw == "" {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	category, err := console.ParseCategory(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	filtered := make([]console.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Category == category {
			filtered = append(filtered, e)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	s.deps.Runner.Log().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportLogs(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, unavailable("控制台"))
		return
	}
	data, err := s.deps.Runner.Log().ExportSnapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	filename := console.ExportFilename(s.clock.Now().UTC())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
