// Package explorer serves the §6 browser-facing JSON surface over a running
// or completed Checker: a live status view, a successor listing for a
// path of fingerprints, and a trigger to run the check to completion.
// It is a thin read-only view; it never mutates the Checker beyond the
// trigger endpoint starting a Run in the background.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/luxfi/log"

	"github.com/luxfi/checker/checker"
	"github.com/luxfi/checker/fingerprint"
)

// checkerView is the subset of *checker.Checker[S, A] the explorer depends
// on, named so tests can substitute a fake without standing up a real
// search. *checker.Checker[S, A] satisfies it as-is.
type checkerView[S any, A any] interface {
	Status() checker.Status
	PropertyStatus() []checker.PropertyReport[S, A]
	PathTo(fp fingerprint.Fingerprint) ([]checker.PathStep[S, A], error)
	Expand(fp fingerprint.Fingerprint) ([]checker.Expansion[S, A], error)
	DisplayAction(action A, state S) string
	Run(ctx context.Context) (checker.Outcome[S, A], error)
}

// Handler serves the explorer's three endpoints over one Checker instance.
// A single Handler is not safe for concurrent registration with more than
// one mux entry per method+path; the handler methods themselves are safe
// for concurrent requests, same as the underlying Checker.
type Handler[S any, A any] struct {
	c   checkerView[S, A]
	log log.Logger

	runOnce sync.Once
	runErr  error
}

// New builds a Handler over c. A nil Logger uses log.NewNoOpLogger().
func New[S any, A any](c checkerView[S, A], logger log.Logger) *Handler[S, A] {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Handler[S, A]{c: c, log: logger}
}

// Register wires the three endpoints onto mux.
func (h *Handler[S, A]) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /.status", h.serveStatus)
	mux.HandleFunc("GET /.states/", h.serveStates)
	mux.HandleFunc("POST /.run-to-completion", h.serveRunToCompletion)
}

// propertyTuple is one [expectation, name, discovery-path-or-null] entry,
// per §6's literal shape.
type propertyTuple [3]any

func (h *Handler[S, A]) propertyTuples() []propertyTuple {
	reports := h.c.PropertyStatus()
	out := make([]propertyTuple, 0, len(reports))
	for _, r := range reports {
		var path any
		if r.HasPath() {
			path = h.formatPath(r.Path)
		}
		out = append(out, propertyTuple{r.Kind.String(), r.Name, path})
	}
	return out
}

// formatPath renders a witness/counterexample path as "state --action-->
// state --action--> state", the same "action → state" rendering §7 asks
// for in CLI output.
func (h *Handler[S, A]) formatPath(path []checker.PathStep[S, A]) string {
	var b strings.Builder
	for i, step := range path {
		if i > 0 {
			b.WriteString(fmt.Sprintf(" --%s--> ", h.c.DisplayAction(*step.Action, path[i-1].State)))
		}
		fmt.Fprintf(&b, "%v", step.State)
	}
	return b.String()
}

type statusView struct {
	Done             bool            `json:"done"`
	StateCount       uint64          `json:"state_count"`
	UniqueStateCount uint64          `json:"unique_state_count"`
	MaxDepth         int             `json:"max_depth"`
	Model            string          `json:"model"`
	Properties       []propertyTuple `json:"properties"`
	RecentPath       string          `json:"recent_path"`
}

func (h *Handler[S, A]) serveStatus(w http.ResponseWriter, r *http.Request) {
	st := h.c.Status()

	fps := make([]string, len(st.RecentPathFPs))
	for i, fp := range st.RecentPathFPs {
		fps[i] = strconv.FormatUint(uint64(fp), 10)
	}

	writeJSON(w, h.log, statusView{
		Done:             st.Done,
		StateCount:       st.StateCount,
		UniqueStateCount: st.UniqueStateCount,
		MaxDepth:         st.MaxDepth,
		Model:            st.ModelName,
		Properties:       h.propertyTuples(),
		RecentPath:       strings.Join(fps, "/"),
	})
}

type successorView struct {
	Action      string          `json:"action"`
	Outcome     string          `json:"outcome"`
	State       string          `json:"state"`
	SVG         *string         `json:"svg"`
	Fingerprint string          `json:"fingerprint"`
	Properties  []propertyTuple `json:"properties"`
}

// serveStates lists the successors of the state at the end of the
// /.states/<fp1>/<fp2>/… path. Only the final fingerprint in the path
// determines the current state (PathTo's replay is by fingerprint, not by
// the intervening segments); earlier segments exist in the URL purely so
// the browser's breadcrumb/back-navigation has a path to show.
func (h *Handler[S, A]) serveStates(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/.states/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		http.Error(w, "missing fingerprint path", http.StatusBadRequest)
		return
	}

	last := segments[len(segments)-1]
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid fingerprint %q: %v", last, err), http.StatusBadRequest)
		return
	}
	fp := fingerprint.Fingerprint(n)

	expansions, err := h.c.Expand(fp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	path, err := h.c.PathTo(fp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	state := path[len(path)-1].State

	props := h.propertyTuples()
	views := make([]successorView, 0, len(expansions))
	for _, e := range expansions {
		outcome := "ok"
		if e.Ignored {
			outcome = "ignored"
		}
		v := successorView{
			Action:     h.c.DisplayAction(e.Action, state),
			Outcome:    outcome,
			Properties: props,
		}
		if !e.Ignored {
			v.State = fmt.Sprintf("%v", e.Next)
			v.Fingerprint = strconv.FormatUint(uint64(e.FP), 10)
		}
		views = append(views, v)
	}

	writeJSON(w, h.log, views)
}

// serveRunToCompletion starts the Checker's Run in the background (bounded
// only by the MaxDepth and Timeout the Checker was built with) if one
// isn't already underway, returning immediately; progress is then visible
// through /.status. Only the first call actually starts the search —
// later calls observe the same run.
func (h *Handler[S, A]) serveRunToCompletion(w http.ResponseWriter, r *http.Request) {
	h.runOnce.Do(func() {
		go func() {
			_, err := h.c.Run(context.Background())
			if err != nil {
				h.runErr = err
				h.log.Error("run-to-completion failed", "error", err)
			}
		}()
	})
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, logger log.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed encoding explorer response", "error", err)
	}
}
