package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/utakatalp/krach-ranker/internal/cache"
	"github.com/utakatalp/krach-ranker/internal/league"
	"github.com/utakatalp/krach-ranker/internal/logger"
	"github.com/utakatalp/krach-ranker/internal/ranking"
	"github.com/utakatalp/krach-ranker/internal/store"
)

// RankingService is what the handlers call. *ranking.Service implements it.
type RankingService interface {
	Rankings(ctx context.Context, division string) (*cache.Entry, error)
	Compute(ctx context.Context, division string) (*ranking.Computed, error)
	Import(ctx context.Context, division string, schedules [][]league.GameRecord) ([]league.Warning, error)
	Schedules(ctx context.Context, division string) ([][]league.GameRecord, error)
	Divisions(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, division string) error
}

// Handler serves the rankings over HTTP.
type Handler struct {
	service RankingService
	log     *logger.Logger
}

func NewHandler(service RankingService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, log: log}
}

// Router registers every route on a new mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/divisions", h.divisions).Methods(http.MethodGet)
	r.HandleFunc("/divisions/{division}", h.deleteDivision).Methods(http.MethodDelete)
	r.HandleFunc("/divisions/{division}/rankings", h.rankings).Methods(http.MethodGet)
	r.HandleFunc("/divisions/{division}/rankings", h.compute).Methods(http.MethodPost)
	r.HandleFunc("/divisions/{division}/schedules", h.schedules).Methods(http.MethodGet)
	r.HandleFunc("/divisions/{division}/schedules", h.importSchedules).Methods(http.MethodPut)
	return r
}

type rankingsResponse struct {
	Division string `json:"division"`
	*cache.Entry
	Records  []league.Record `json:"records,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

type importResponse struct {
	Division string   `json:"division"`
	Warnings []string `json:"warnings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) divisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.service.Divisions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if divisions == nil {
		divisions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"divisions": divisions})
}

func (h *Handler) rankings(w http.ResponseWriter, r *http.Request) {
	division := mux.Vars(r)["division"]
	entry, err := h.service.Rankings(r.Context(), division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingsResponse{Division: division, Entry: entry})
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	division := mux.Vars(r)["division"]
	computed, err := h.service.Compute(r.Context(), division)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingsResponse{
		Division: division,
		Entry:    computed.Entry,
		Records:  computed.Records,
		Warnings: warningStrings(computed.Warnings),
	})
}

func (h *Handler) schedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.Schedules(r.Context(), mux.Vars(r)["division"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *Handler) importSchedules(w http.ResponseWriter, r *http.Request) {
	division := mux.Vars(r)["division"]

	var schedules [][]league.GameRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(&schedules); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid schedules: " + err.Error()})
		return
	}

	warnings, err := h.service.Import(r.Context(), division, schedules)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Division: division, Warnings: warningStrings(warnings)})
}

func (h *Handler) deleteDivision(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["division"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps an error to a status. Empty input is the caller's data problem,
// a missing division is not found, everything else is ours.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, league.ErrEmptyInput), errors.Is(err, league.ErrEmptyMatrix):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNoData):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func warningStrings(warnings []league.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
