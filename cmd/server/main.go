// Package main provides the evaluation server:
// - HTTP API: submit evaluations, fetch stored runs
// - WebSocket: live per-trial progress for running evaluations
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"trade-eval-lab/internal/decision"
	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/metrics"
	"trade-eval-lab/internal/observability"
	"trade-eval-lab/internal/orchestrator"
	"trade-eval-lab/internal/simulation"
	"trade-eval-lab/internal/storage"
	"trade-eval-lab/internal/strategy"
	chstore "trade-eval-lab/internal/storage/clickhouse"
	"trade-eval-lab/internal/storage/memory"
	pgstore "trade-eval-lab/internal/storage/postgres"
)

// maxTrialsPerRequest bounds a single API evaluation so one request
// cannot monopolize the server.
const maxTrialsPerRequest = 10_000_000

// Server holds the evaluation service components.
type Server struct {
	stores *allStores
	hub    *progressHub
	logger *log.Logger

	thresholds decision.Thresholds
	metricOpts metrics.Options
	workers    int

	// One evaluation at a time; the sample buffers are large and the
	// runner already parallelizes across trials.
	evalMu sync.Mutex

	mu              sync.Mutex
	startedAt       time.Time
	lastEvaluation  time.Time
	evaluationsRun  int
	evaluationsFail int
}

// allStores holds the storage implementations.
type allStores struct {
	runStore      storage.RunStore
	sampleStore   storage.SampleStore
	snapshotStore storage.SnapshotStore
	decisionStore storage.DecisionStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	workers := flag.Int("workers", 0, "Simulation workers; 0 uses GOMAXPROCS")

	// Default decision thresholds applied to every request that does
	// not carry its own.
	minExpectedPnL := flag.String("min-expected-pnl", "", "Default floor on mean PnL")
	maxCVaRLoss := flag.String("max-cvar-loss", "", "Default cap on CVaR loss magnitude")
	minSharpe := flag.String("min-sharpe", "", "Default floor on Sharpe")
	minSortino := flag.String("min-sortino", "", "Default floor on Sortino")
	maxRuinProbability := flag.String("max-ruin-probability", "", "Default cap on ruin probability")

	varConfidence := flag.Float64("var-confidence", 0.95, "VaR/CVaR confidence level")
	ruinThreshold := flag.Float64("ruin-threshold", 0, "PnL level at or below which a trial counts as ruin")
	sharpeScale := flag.Float64("sharpe-scale", 1, "Annualization factor for Sharpe/Sortino")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	thresholds, err := parseThresholds(*minExpectedPnL, *maxCVaRLoss, *minSharpe, *minSortino, *maxRuinProbability)
	if err != nil {
		logger.Fatalf("invalid threshold flag: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		stores:     stores,
		hub:        newProgressHub(logger),
		logger:     logger,
		thresholds: thresholds,
		metricOpts: metrics.Options{
			VaRConfidence: *varConfidence,
			RuinThreshold: *ruinThreshold,
			SharpeScale:   *sharpeScale,
		},
		workers:   *workers,
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		server.hub.closeAll()
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the storage implementations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			runStore:      memory.NewRunStore(),
			sampleStore:   memory.NewSampleStore(),
			snapshotStore: memory.NewSnapshotStore(),
			decisionStore: memory.NewDecisionStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL: run summaries, snapshots, decisions
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// ClickHouse: raw per-trial PnL samples
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		runStore:      pgstore.NewRunStore(pool),
		sampleStore:   chstore.NewSampleStore(chConn),
		snapshotStore: pgstore.NewSnapshotStore(pool),
		decisionStore: pgstore.NewDecisionStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /ws", s.hub.handleWS)
	return mux
}

// evaluateRequest is the POST /evaluate body. Thresholds override the
// server defaults when present.
type evaluateRequest struct {
	Model      domain.ModelConfig    `json:"model"`
	Strategy   domain.StrategyConfig `json:"strategy"`
	Trials     int                   `json:"trials"`
	Horizon    int                   `json:"horizon"`
	Seed       *uint64               `json:"seed,omitempty"`
	Thresholds *decision.Thresholds  `json:"thresholds,omitempty"`
}

// evaluateResponse is the POST /evaluate reply.
type evaluateResponse struct {
	RunID    string               `json:"run_id"`
	Snapshot *domain.RiskSnapshot `json:"snapshot"`
	Decision *decision.Decision   `json:"decision"`
}

// handleEvaluate runs the full pipeline for one request.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Trials > maxTrialsPerRequest {
		httpError(w, http.StatusBadRequest,
			fmt.Sprintf("trials %d exceeds per-request limit %d", req.Trials, maxTrialsPerRequest))
		return
	}

	thresholds := s.thresholds
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}

	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	orch := orchestrator.New(orchestrator.Options{
		RunStore:      s.stores.runStore,
		SampleStore:   s.stores.sampleStore,
		SnapshotStore: s.stores.snapshotStore,
		DecisionStore: s.stores.decisionStore,
		Thresholds:    thresholds,
		MetricOpts:    s.metricOpts,
		Workers:       s.workers,
		Progress:      s.hub.progressFunc(req.Trials),
	})

	start := time.Now()
	eval, err := orch.Evaluate(r.Context(), req.toEvaluationRequest())
	if err != nil {
		s.recordEvaluation(false)
		s.hub.broadcast(progressEvent{Type: "error", Error: err.Error()})
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			httpError(w, http.StatusConflict, err.Error())
		case isConfigError(err):
			httpError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Printf("Evaluation error: %v", err)
			httpError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.recordEvaluation(true)
	s.logger.Printf("Evaluated run %s in %v: verdict=%s",
		eval.Result.RunID, time.Since(start), eval.Decision.Verdict)

	s.hub.broadcast(progressEvent{
		Type:    "done",
		RunID:   eval.Result.RunID,
		Total:   req.Trials,
		Verdict: string(eval.Decision.Verdict),
	})

	writeJSON(w, http.StatusOK, evaluateResponse{
		RunID:    eval.Result.RunID,
		Snapshot: eval.Snapshot,
		Decision: eval.Decision,
	})
}

func (r evaluateRequest) toEvaluationRequest() orchestrator.EvaluationRequest {
	return orchestrator.EvaluationRequest{
		Model:    r.Model,
		Strategy: r.Strategy,
		Trials:   r.Trials,
		Horizon:  r.Horizon,
		Seed:     r.Seed,
	}
}

// runResponse joins a stored run with its snapshot and decision.
type runResponse struct {
	Run      *domain.RunRecord      `json:"run"`
	Snapshot *domain.RiskSnapshot   `json:"snapshot,omitempty"`
	Decision *domain.DecisionRecord `json:"decision,omitempty"`
}

// handleGetRun returns a stored run with its snapshot and decision.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	ctx := r.Context()

	run, err := s.stores.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
			return
		}
		s.logger.Printf("Load run %s: %v", runID, err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := runResponse{Run: run}
	if snap, err := s.stores.snapshotStore.GetByRunID(ctx, runID); err == nil {
		resp.Snapshot = snap
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("Load snapshot %s: %v", runID, err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dec, err := s.stores.decisionStore.GetByRunID(ctx, runID); err == nil {
		resp.Decision = dec
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("Load decision %s: %v", runID, err)
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	EvaluationsRun  int       `json:"evaluations_run"`
	EvaluationsFail int       `json:"evaluations_failed"`
	LastEvaluation  time.Time `json:"last_evaluation,omitempty"`
	WSClients       int       `json:"ws_clients"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.startedAt).String(),
		EvaluationsRun:  s.evaluationsRun,
		EvaluationsFail: s.evaluationsFail,
		LastEvaluation:  s.lastEvaluation,
	}
	s.mu.Unlock()
	resp.WSClients = s.hub.clientCount()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordEvaluation(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEvaluation = time.Now()
	if ok {
		s.evaluationsRun++
	} else {
		s.evaluationsFail++
	}
}

// configErrors are request validation failures that map to HTTP 400
// rather than a server-side fault. They all surface before any
// simulation work begins.
var configErrors = []error{
	simulation.ErrTooFewTrials,
	simulation.ErrInvalidHorizon,
	domain.ErrUnknownModelType,
	domain.ErrNonPositivePrice,
	domain.ErrNonPositiveVolatility,
	domain.ErrNonPositiveDt,
	domain.ErrMissingJumpIntensity,
	domain.ErrMissingJumpMeanLog,
	domain.ErrMissingJumpStddevLog,
	domain.ErrNegativeJumpIntensity,
	domain.ErrNegativeJumpStddev,
	domain.ErrJumpProbabilityTooBig,
	domain.ErrNoRegimes,
	domain.ErrBadTransitionMatrix,
	domain.ErrBadInitialRegime,
	strategy.ErrUnknownStrategyType,
	strategy.ErrZeroPositionSize,
	strategy.ErrNonPositiveEntryPrice,
	strategy.ErrNegativeCostRate,
	strategy.ErrMissingStrike,
	strategy.ErrMissingPremiumInputs,
	strategy.ErrMissingUpperStrike,
	strategy.ErrBadSpreadStrikes,
	strategy.ErrNegativePremium,
}

func isConfigError(err error) bool {
	for _, sentinel := range configErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// progressEvent is one WebSocket message to subscribed clients.
type progressEvent struct {
	Type      string `json:"type"` // progress | done | error
	RunID     string `json:"run_id,omitempty"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total,omitempty"`
	Verdict   string `json:"verdict,omitempty"`
	Error     string `json:"error,omitempty"`
}

// progressHub fans evaluation progress out to WebSocket clients.
type progressHub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newProgressHub(logger *log.Logger) *progressHub {
	return &progressHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// handleWS upgrades the connection and registers the client.
func (h *progressHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.WSClientsConnected.Set(float64(n))

	// Drain reads so close frames and pings are processed; clients only
	// receive on this socket.
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *progressHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.WSClientsConnected.Set(float64(n))
	conn.Close()
}

// broadcast sends an event to all connected clients, dropping clients
// whose writes fail.
func (h *progressHub) broadcast(event progressEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.unregister(conn)
		}
	}
}

// progressFunc returns a simulation progress callback that broadcasts
// at roughly 1% granularity.
func (h *progressHub) progressFunc(total int) func(completed, total int) {
	step := total / 100
	if step < 1 {
		step = 1
	}
	return func(completed, total int) {
		if completed%step != 0 && completed != total {
			return
		}
		h.broadcast(progressEvent{Type: "progress", Completed: completed, Total: total})
	}
}

func (h *progressHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// closeAll closes every client connection during shutdown.
func (h *progressHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
	observability.DefaultMetrics.WSClientsConnected.Set(0)
}

// parseThresholds parses optional threshold flags; empty means unset.
func parseThresholds(minPnL, maxCVaR, minSharpe, minSortino, maxRuin string) (decision.Thresholds, error) {
	var t decision.Thresholds
	for _, f := range []struct {
		value  string
		target **float64
	}{
		{minPnL, &t.MinExpectedPnL},
		{maxCVaR, &t.MaxCVaRLoss},
		{minSharpe, &t.MinSharpe},
		{minSortino, &t.MinSortino},
		{maxRuin, &t.MaxRuinProbability},
	} {
		if f.value == "" {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(f.value, "%g", &v); err != nil {
			return t, fmt.Errorf("parse %q: %w", f.value, err)
		}
		*f.target = &v
	}
	return t, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
