package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"maru/internal/domain"
	"maru/internal/engine"
	"maru/internal/forecast"
	"maru/internal/panel"
	"maru/internal/rl"
	"maru/internal/store"
)

// Server serves the forecaster HTTP API.
type Server struct {
	txs       store.TransactionStore
	macro     store.MacroStore
	runs      store.RunStore
	scenarios store.ScenarioStore
	trainer   *engine.Trainer

	params   panel.Params
	training rl.TrainConfig
	horizon  int

	log *slog.Logger
}

// NewServer creates a new API server. params, training, and horizon are the
// defaults applied when a train request leaves them unset.
func NewServer(
	txs store.TransactionStore,
	macro store.MacroStore,
	runs store.RunStore,
	scenarios store.ScenarioStore,
	trainer *engine.Trainer,
	params panel.Params,
	training rl.TrainConfig,
	horizon int,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		txs:       txs,
		macro:     macro,
		runs:      runs,
		scenarios: scenarios,
		trainer:   trainer,
		params:    params,
		training:  training,
		horizon:   horizon,
		log:       log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/complexes/{region}", s.handleComplexes)
	mux.HandleFunc("GET /api/areas/{region}/{complex}", s.handleAreas)
	mux.HandleFunc("POST /api/train", s.handleTrain)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/scenario/{runID}", s.handleScenario)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.txs.ListRegions(r.Context())
	if err != nil {
		s.log.Error("listing regions", "error", err)
		writeError(w, http.StatusInternalServerError, "listing regions")
		return
	}
	if regions == nil {
		regions = []string{}
	}
	writeJSON(w, RegionsResponse{Regions: regions})
}

func (s *Server) handleComplexes(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	complexes, err := s.txs.ListComplexes(r.Context(), region)
	if err != nil {
		s.log.Error("listing complexes", "region", region, "error", err)
		writeError(w, http.StatusInternalServerError, "listing complexes")
		return
	}
	if complexes == nil {
		complexes = []string{}
	}
	writeJSON(w, ComplexesResponse{Complexes: complexes})
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	complexName := r.PathValue("complex")
	areas, err := s.txs.ListAreas(r.Context(), region, complexName)
	if err != nil {
		s.log.Error("listing areas", "region", region, "complex", complexName, "error", err)
		writeError(w, http.StatusInternalServerError, "listing areas")
		return
	}
	if areas == nil {
		areas = []float64{}
	}
	writeJSON(w, AreasResponse{Areas: areas})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Region == "" || req.Complex == "" || req.Area <= 0 {
		writeError(w, http.StatusBadRequest, "region, complex, and area are required")
		return
	}

	ctx := r.Context()
	sel := domain.Selection{Region: req.Region, Complex: req.Complex, Area: req.Area}

	txs, err := s.txs.ReadTransactions(ctx, sel)
	if err != nil {
		s.log.Error("reading transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "reading transactions")
		return
	}
	if len(txs) == 0 {
		writeError(w, http.StatusNotFound, "no transactions for selection")
		return
	}

	rates, err := s.macro.ReadRates(ctx)
	if err != nil {
		s.log.Error("reading rates", "error", err)
		writeError(w, http.StatusInternalServerError, "reading rates")
		return
	}
	pops, err := s.macro.ReadPopulation(ctx, sel.Region)
	if err != nil {
		s.log.Error("reading population", "error", err)
		writeError(w, http.StatusInternalServerError, "reading population")
		return
	}

	table, err := panel.Build(txs, rates, pops, s.params)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, "fewer than 2 months of data for selection")
			return
		}
		s.log.Error("building panel", "error", err)
		writeError(w, http.StatusInternalServerError, "building panel")
		return
	}

	cfg := s.training
	if req.Episodes > 0 {
		cfg.Episodes = req.Episodes
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	horizon := s.horizon
	if req.Horizon > 0 {
		horizon = req.Horizon
	}

	res, err := s.trainer.RunTable(ctx, sel, table, cfg, horizon)
	if err != nil {
		s.log.Error("training", "error", err)
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}

	writeJSON(w, TrainResponse{
		Run:      runJSON(res.Run),
		Scenario: scenarioJSON(res.Scenario),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "listing runs")
		return
	}

	out := make([]RunJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON(run))
	}
	writeJSON(w, RunsResponse{Runs: out})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	steps, err := s.scenarios.ReadScenario(r.Context(), runID)
	if err != nil {
		s.log.Error("reading scenario", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "reading scenario")
		return
	}
	if len(steps) == 0 {
		writeError(w, http.StatusNotFound, "no scenario for run")
		return
	}

	out := make([]ScenarioStepJSON, 0, len(steps))
	for _, st := range steps {
		out = append(out, ScenarioStepJSON{
			Step:          st.Step,
			Period:        st.Period.String(),
			Direction:     st.Direction.Label(),
			AppliedReturn: st.AppliedReturn,
			Price:         st.Price,
		})
	}
	writeJSON(w, ScenarioResponse{RunID: runID, Steps: out})
}

// ---------------------------------------------------------------------------
// JSON conversion
// ---------------------------------------------------------------------------

func runJSON(run domain.RunSummary) RunJSON {
	return RunJSON{
		ID:                 run.ID,
		Region:             run.Selection.Region,
		Complex:            run.Selection.Complex,
		Area:               run.Selection.Area,
		Episodes:           run.Episodes,
		TotalReward:        run.TotalReward,
		Steps:              run.Steps,
		Correct:            run.Correct,
		Wrong:              run.Wrong,
		Accuracy:           run.Accuracy,
		LastPeriod:         run.LastPeriod.String(),
		NextPeriod:         run.NextPeriod.String(),
		PredictedDirection: run.PredictedDirection.Label(),
		CreatedAt:          run.CreatedAt.Format(time.RFC3339),
	}
}

func scenarioJSON(steps []forecast.ScenarioStep) []ScenarioStepJSON {
	out := make([]ScenarioStepJSON, 0, len(steps))
	for _, st := range steps {
		out = append(out, ScenarioStepJSON{
			Step:          st.Step,
			Period:        st.Period.String(),
			Direction:     st.Direction.Label(),
			AppliedReturn: st.AppliedReturn,
			Price:         st.Price,
		})
	}
	return out
}
