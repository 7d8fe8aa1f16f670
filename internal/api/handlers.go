package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Verdant/internal/config"
	"github.com/MikeSquared-Agency/Verdant/internal/dataset"
	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
)

// maxBodyBytes bounds request bodies; tables arrive inline.
const maxBodyBytes = 32 << 20

// TableInput carries a table either as columns and rows or as CSV text.
type TableInput struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	CSV     string     `json:"csv,omitempty"`
}

func (in *TableInput) table(source string) (*dataset.Table, error) {
	if in == nil {
		return nil, errors.New("table is required")
	}
	if in.CSV != "" {
		return dataset.ReadCSV(strings.NewReader(in.CSV), source)
	}
	if len(in.Columns) == 0 {
		return nil, errors.New("table needs columns and rows, or csv")
	}
	return &dataset.Table{Source: source, Columns: in.Columns, Rows: in.Rows}, nil
}

type EvaluateRequest struct {
	Profile   string             `json:"profile"`
	RunID     string             `json:"run_id,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Threshold *float64           `json:"threshold,omitempty"`
	Method    string             `json:"method,omitempty"`
	Workers   *int               `json:"workers,omitempty"`
	Table     *TableInput        `json:"table"`
}

func (req EvaluateRequest) overrides() config.Overrides {
	return config.Overrides{
		RunID:     req.RunID,
		Weights:   req.Weights,
		Threshold: req.Threshold,
		Workers:   req.Workers,
		Method:    req.Method,
	}
}

type ComplianceRequest struct {
	RunID       string      `json:"run_id,omitempty"`
	Threshold   *float64    `json:"threshold,omitempty"`
	Data        *TableInput `json:"data"`
	Regulations *TableInput `json:"regulations"`
}

type KPIRequest struct {
	Table *TableInput `json:"table"`
}

type RunsHandler struct {
	runner *pipeline.Runner
}

func NewRunsHandler(runner *pipeline.Runner) *RunsHandler {
	return &RunsHandler{runner: runner}
}

func (h *RunsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, false)
}

// Advise is Evaluate with the advisor forced on.
func (h *RunsHandler) Advise(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, true)
}

func (h *RunsHandler) run(w http.ResponseWriter, r *http.Request, advise bool) {
	var req EvaluateRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.runner.Config().Profile(req.Profile); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Kind: pipeline.KindConfiguration})
		return
	}
	tbl, err := req.Table.table("request")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.runner.Run(r.Context(), pipeline.Request{
		Profile:   req.Profile,
		Table:     tbl,
		Overrides: req.overrides(),
		Advise:    advise,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RunsHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if !decode(w, r, &req) {
		return
	}
	data, err := req.Data.table("data")
	if err != nil {
		writeError(w, err)
		return
	}
	regs, err := req.Regulations.table("regulations")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.runner.RunCompliance(r.Context(), data, regs, config.Overrides{RunID: req.RunID, Threshold: req.Threshold})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RunsHandler) KPI(w http.ResponseWriter, r *http.Request) {
	var req KPIRequest
	if !decode(w, r, &req) {
		return
	}
	tbl, err := req.Table.table("request")
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.runner.RunKPI(tbl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type ProfilesHandler struct {
	cfg *config.Config
}

func NewProfilesHandler(cfg *config.Config) *ProfilesHandler {
	return &ProfilesHandler{cfg: cfg}
}

type profileEntry struct {
	Name string `json:"name"`
	config.Profile
}

func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.cfg.ProfileNames()
	out := make([]profileEntry, 0, len(names))
	for _, name := range names {
		out = append(out, profileEntry{Name: name, Profile: h.cfg.Profiles[name]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.cfg.Profile(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, profileEntry{Name: name, Profile: p})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps a run error onto a status code by its kind.
func writeError(w http.ResponseWriter, err error) {
	kind := pipeline.ErrorKind(err)
	status := http.StatusUnprocessableEntity
	switch kind {
	case pipeline.KindWorkerFailure:
		status = http.StatusInternalServerError
	case pipeline.KindCanceled:
		status = http.StatusRequestTimeout
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
