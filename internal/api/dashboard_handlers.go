package api

import (
	"net/http"

	"AutoFlow-Agent/internal/dashboard"
)

// DashboardView 附带当前页面的展示名称。
type DashboardView struct {
	dashboard.Snapshot
	Label string `json:"label"`
}

type sectionRequest struct {
	Section string `json:"section"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) dashboardView() DashboardView {
	snap := s.deps.Dashboard.Snapshot()
	return DashboardView{Snapshot: snap, Label: snap.Section.Label()}
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Dashboard == nil {
		writeError(w, unavailable("面板"))
		return
	}
	writeJSON(w, http.StatusOK, s.dashboardView())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		writeError(w, unavailable("面板"))
		return
	}
	var req sectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	section, err := dashboard.ParseSection(req.Section)
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Dashboard.Navigate(section)
	writeJSON(w, http.StatusOK, s.dashboardView())
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dashboard == nil {
		writeError(w, unavailable("面板"))
		return
	}
	var req themeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	theme, err := dashboard.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	s.deps.Dashboard.SetTheme(theme)
	writeJSON(w, http.StatusOK, s.dashboardView())
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Dashboard == nil {
		writeError(w, unavailable("面板"))
		return
	}
	s.deps.Dashboard.ToggleTheme()
	writeJSON(w, http.StatusOK, s.dashboardView())
}
