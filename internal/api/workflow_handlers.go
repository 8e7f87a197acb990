package api

import (
	"net/http"

	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/internal/workflow"
)

// BuilderView 是画布的当前状态。
type BuilderView struct {
	Name    string          `json:"name"`
	Nodes   []workflow.Node `json:"nodes"`
	Running bool            `json:"running"`
}

// AddNodeRequest 请求追加节点，title 为空时使用该类型的第一个预设。
type AddNodeRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
}

// SaveRequest 保存画布，name 为空时沿用画布名称。
type SaveRequest struct {
	Name string `json:"name,omitempty"`
}

// ChangeResult 描述删除类请求是否命中了目标。
type ChangeResult struct {
	Changed bool `json:"changed"`
}

func (s *Server) handleBuilderState(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	b := s.deps.Builder
	writeJSON(w, http.StatusOK, BuilderView{Name: b.Name(), Nodes: b.Nodes(), Running: b.Running()})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, workflow.TemplateCatalog())
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	var req AddNodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, err := workflow.ParseNodeKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	var tmpl workflow.Template
	if req.Title != "" {
		found, ok := workflow.LookupTemplate(kind, req.Title)
		if !ok {
			writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "未知的节点模板: "+req.Title))
			return
		}
		tmpl = found
	}
	writeJSON(w, http.StatusCreated, s.deps.Builder.AddNode(kind, tmpl))
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	removed := s.deps.Builder.RemoveNode(r.PathValue("id"))
	writeJSON(w, http.StatusOK, ChangeResult{Changed: removed})
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	var req SaveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	draft, err := s.deps.Builder.Save(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (s *Server) handleBuilderRun(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	started := s.deps.Builder.Run(s.baseCtx)
	writeJSON(w, http.StatusOK, ChangeResult{Changed: started})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, unavailable("画布"))
		return
	}
	drafts, err := s.deps.Builder.Drafts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, unavailable("工作流目录"))
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.deps.Catalog.List(q.Get("q"), q.Get("category")))
}

func (s *Server) handleWorkflowStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, unavailable("工作流目录"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.Stats())
}

func (s *Server) handleDuplicateWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, unavailable("工作流目录"))
		return
	}
	copied, err := s.deps.Catalog.Duplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, copied)
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, unavailable("运行队列"))
		return
	}
	wf, err := s.deps.Runs.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, unavailable("工作流目录"))
		return
	}
	deleted, err := s.deps.Catalog.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeResult{Changed: deleted})
}
