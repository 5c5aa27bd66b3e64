package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/gbFinch/FreeTradingJournal/internal/analytics"
	"github.com/gbFinch/FreeTradingJournal/internal/journal"
	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// maxImportBody caps uploaded trade log size at 10 MiB.
const maxImportBody = 10 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *journal.TradeService
	log     zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(service *journal.TradeService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// PreviewImport handles POST /api/v1/import/preview. The request body is
// the raw trade log text.
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	preview, err := h.service.PreviewImport(string(content))
	if err != nil {
		h.log.Error().Err(err).Msg("import preview failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

// ExecuteImport handles POST /api/v1/import. It parses the body as a trade
// log and stores every closed trade that is not already journaled.
func (h *Handler) ExecuteImport(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	closed, _, parseErrs := journal.ParseAndAggregate(string(content))

	result, err := h.service.ExecuteImport(closed, true)
	if err != nil {
		h.log.Error().Err(err).Msg("import failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, pe := range parseErrs {
		result.Errors = append(result.Errors, pe.Error())
	}

	h.log.Info().
		Int("imported", result.ImportedCount).
		Int("skipped", result.SkippedDuplicates).
		Int("errors", len(result.Errors)).
		Msg("trade log imported")

	respondJSON(w, http.StatusOK, result)
}

// CreateTrade handles POST /api/v1/trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var input models.CreateTradeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if input.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	trade, err := h.service.CreateTrade(input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusCreated, trade)
}

// GetTrades handles GET /api/v1/trades with optional status, start_date,
// and end_date query parameters (dates as 2006-01-02).
func (h *Handler) GetTrades(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var trades []models.TradeWithDerived
	switch r.URL.Query().Get("status") {
	case "":
		trades, err = h.service.AllTrades(start, end)
	case string(models.StatusClosed):
		trades, err = h.service.ClosedTrades(start, end)
	case string(models.StatusOpen):
		all, listErr := h.service.AllTrades(start, end)
		err = listErr
		for _, t := range all {
			if t.Status == models.StatusOpen {
				trades = append(trades, t)
			}
		}
	default:
		http.Error(w, "status must be open or closed", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list trades")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.TradeWithDerived{}
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET /api/v1/trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trade, err := h.service.GetTrade(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trade == nil {
		http.Error(w, "trade not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// UpdateTrade handles PUT /api/v1/trades/{id}
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input models.UpdateTradeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.UpdateTrade(id, input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if trade == nil {
		http.Error(w, "trade not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// GetTradeExecutions handles GET /api/v1/trades/{id}/executions
func (h *Handler) GetTradeExecutions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trade, err := h.service.GetTrade(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if trade == nil {
		http.Error(w, "trade not found", http.StatusNotFound)
		return
	}

	execs, err := h.service.GetTradeExecutions(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, execs)
}

// DeleteTrade handles DELETE /api/v1/trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteTrade(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDailyMetrics handles GET /api/v1/metrics/daily
func (h *Handler) GetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.closedTrades(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, analytics.DailyMetrics(trades))
}

// GetPeriodMetrics handles GET /api/v1/metrics/period
func (h *Handler) GetPeriodMetrics(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.closedTrades(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, analytics.PeriodStats(trades))
}

// GetEquityCurve handles GET /api/v1/metrics/equity-curve
func (h *Handler) GetEquityCurve(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.closedTrades(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, analytics.EquityCurve(trades))
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) closedTrades(w http.ResponseWriter, r *http.Request) ([]models.TradeWithDerived, bool) {
	start, end, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	trades, err := h.service.ClosedTrades(start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list closed trades")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return trades, true
}

func dateRange(r *http.Request) (start, end *time.Time, err error) {
	if start, err = parseDateParam(r, "start_date"); err != nil {
		return nil, nil, err
	}
	if end, err = parseDateParam(r, "end_date"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be formatted as YYYY-MM-DD", name)
	}
	return &t, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
