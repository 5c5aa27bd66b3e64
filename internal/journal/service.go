package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
	"github.com/gbFinch/FreeTradingJournal/internal/pnl"
	"github.com/gbFinch/FreeTradingJournal/internal/tlg"
)

// TradeFilter narrows a trade listing. Zero values mean no constraint.
type TradeFilter struct {
	Status    models.Status
	StartDate *time.Time
	EndDate   *time.Time
}

// ExecutionSide tells entry fills from exit fills on a stored trade.
type ExecutionSide string

const (
	ExecutionSideEntry ExecutionSide = "entry"
	ExecutionSideExit  ExecutionSide = "exit"
)

// TradeExecution is one persisted fill attached to a journal trade, kept so
// a trade's per-fill detail survives aggregation.
type TradeExecution struct {
	TradeID string        `json:"trade_id"`
	Side    ExecutionSide `json:"side"`
	TradeLeg
}

// TradeRepository is the persistence collaborator. The journal only ever
// talks to this interface; storage, schema, and migration concerns live
// behind it.
type TradeRepository interface {
	InsertTrade(t *models.Trade) error
	UpdateTrade(t *models.Trade) error
	GetTrade(id string) (*models.Trade, error)
	ListTrades(filter TradeFilter) ([]models.Trade, error)
	DeleteTrade(id string) error
	HasBrokerExecution(id string) (bool, error)
	RecordExecutions(tradeID string, execs []TradeExecution) error
	ReplaceExitExecutions(tradeID string, execs []TradeExecution) error
	ListExecutions(tradeID string) ([]TradeExecution, error)
}

// Defaults are the journal's explicit fallbacks for manually entered
// trades.
type Defaults struct {
	Currency   string
	AssetClass models.AssetClass
}

// TradeService owns trade creation, import, and listing on top of a
// TradeRepository.
type TradeService struct {
	repo     TradeRepository
	defaults Defaults
}

func NewTradeService(repo TradeRepository, defaults Defaults) *TradeService {
	return &TradeService{repo: repo, defaults: defaults}
}

// CreateTrade validates and stores a manually entered trade. Exit legs, if
// supplied, are aggregated into the trade's exit price, exit time, fees,
// and status; any invalid leg aborts the whole creation.
func (s *TradeService) CreateTrade(input models.CreateTradeInput) (*models.TradeWithDerived, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entryQty := decimal.Zero
	if input.Quantity != nil {
		entryQty = *input.Quantity
	}
	summary, err := AggregateExits(entryQty, input.Exits, ExitSourceManual)
	if err != nil {
		return nil, err
	}

	fees := decimal.Zero
	if input.Fees != nil {
		fees = *input.Fees
	}
	fees = fees.Add(summary.TotalFees)

	exitPrice := input.ExitPrice
	if summary.AvgExitPrice != nil {
		exitPrice = summary.AvgExitPrice
	}
	exitTime := input.ExitTime
	if summary.LatestExitTime != "" {
		exitTime = summary.LatestExitTime
	}
	status := input.Status
	if summary.Status != "" {
		status = summary.Status
	}
	if status == "" {
		status = models.StatusClosed
	}

	assetClass := input.AssetClass
	if assetClass == "" {
		assetClass = s.defaults.AssetClass
	}
	currency := input.Currency
	if currency == "" {
		currency = s.defaults.Currency
	}

	now := time.Now().UTC()
	trade := models.Trade{
		ID:            uuid.NewString(),
		Symbol:        strings.ToUpper(input.Symbol),
		AssetClass:    assetClass,
		Currency:      currency,
		TradeDate:     input.TradeDate,
		Direction:     input.Direction,
		Quantity:      input.Quantity,
		EntryPrice:    input.EntryPrice,
		ExitPrice:     exitPrice,
		StopLossPrice: input.StopLossPrice,
		EntryTime:     input.EntryTime,
		ExitTime:      exitTime,
		Fees:          fees,
		Strategy:      input.Strategy,
		Notes:         input.Notes,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.InsertTrade(&trade); err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	if len(input.Exits) > 0 {
		if err := s.repo.RecordExecutions(trade.ID, exitExecutions(trade.ID, input.Exits)); err != nil {
			return nil, fmt.Errorf("failed to record exit executions: %w", err)
		}
	}

	return withDerived(trade), nil
}

// UpdateTrade merges the supplied fields onto the stored trade, revalidates
// the result, and returns it with recomputed derived fields. It returns
// nil, nil when the trade does not exist.
func (s *TradeService) UpdateTrade(id string, input models.UpdateTradeInput) (*models.TradeWithDerived, error) {
	existing, err := s.repo.GetTrade(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	trade := *existing
	if input.Symbol != nil {
		trade.Symbol = strings.ToUpper(*input.Symbol)
	}
	if input.TradeDate != nil {
		trade.TradeDate = *input.TradeDate
	}
	if input.Direction != nil {
		trade.Direction = *input.Direction
	}
	if input.Quantity != nil {
		trade.Quantity = input.Quantity
	}
	if input.EntryPrice != nil {
		trade.EntryPrice = *input.EntryPrice
	}
	if input.ExitPrice != nil {
		trade.ExitPrice = input.ExitPrice
	}
	if input.StopLossPrice != nil {
		trade.StopLossPrice = input.StopLossPrice
	}
	if input.EntryTime != nil {
		trade.EntryTime = *input.EntryTime
	}
	if input.ExitTime != nil {
		trade.ExitTime = *input.ExitTime
	}
	if input.Fees != nil {
		trade.Fees = *input.Fees
	}
	if input.Strategy != nil {
		trade.Strategy = *input.Strategy
	}
	if input.Notes != nil {
		trade.Notes = *input.Notes
	}
	if input.Status != nil {
		trade.Status = *input.Status
	}

	merged := models.CreateTradeInput{
		EntryPrice:    trade.EntryPrice,
		Quantity:      trade.Quantity,
		ExitPrice:     trade.ExitPrice,
		StopLossPrice: trade.StopLossPrice,
		Fees:          &trade.Fees,
	}
	if err := validateInput(merged); err != nil {
		return nil, err
	}

	if len(input.Exits) > 0 {
		entryQty := decimal.Zero
		if trade.Quantity != nil {
			entryQty = *trade.Quantity
		}
		summary, err := AggregateExits(entryQty, input.Exits, ExitSourceManual)
		if err != nil {
			return nil, err
		}
		trade.ExitPrice = summary.AvgExitPrice
		if summary.LatestExitTime != "" {
			trade.ExitTime = summary.LatestExitTime
		}
		trade.Fees = trade.Fees.Add(summary.TotalFees)
		if summary.Status != "" {
			trade.Status = summary.Status
		}
		if err := s.repo.ReplaceExitExecutions(id, exitExecutions(id, input.Exits)); err != nil {
			return nil, fmt.Errorf("failed to record exit executions: %w", err)
		}
	}

	trade.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateTrade(&trade); err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}

	return withDerived(trade), nil
}

// GetTrade returns one trade with derived fields, or nil when absent.
func (s *TradeService) GetTrade(id string) (*models.TradeWithDerived, error) {
	trade, err := s.repo.GetTrade(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	if trade == nil {
		return nil, nil
	}
	return withDerived(*trade), nil
}

// ClosedTrades lists closed trades with derived fields for the given date
// range; analytics consume exactly this set.
func (s *TradeService) ClosedTrades(start, end *time.Time) ([]models.TradeWithDerived, error) {
	return s.listDerived(TradeFilter{Status: models.StatusClosed, StartDate: start, EndDate: end})
}

// AllTrades lists every trade, open ones included.
func (s *TradeService) AllTrades(start, end *time.Time) ([]models.TradeWithDerived, error) {
	return s.listDerived(TradeFilter{StartDate: start, EndDate: end})
}

// DeleteTrade removes a trade.
func (s *TradeService) DeleteTrade(id string) error {
	if err := s.repo.DeleteTrade(id); err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return nil
}

func (s *TradeService) listDerived(filter TradeFilter) ([]models.TradeWithDerived, error) {
	trades, err := s.repo.ListTrades(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	out := make([]models.TradeWithDerived, 0, len(trades))
	for _, t := range trades {
		out = append(out, *withDerived(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TradeDate.Before(out[j].TradeDate)
	})
	return out, nil
}

func withDerived(t models.Trade) *models.TradeWithDerived {
	return &models.TradeWithDerived{Trade: t, DerivedFields: pnl.Derive(t)}
}

// ImportPreview reports what importing a trade log would do.
type ImportPreview struct {
	TradesToImport []AggregatedTrade `json:"trades_to_import"`
	OpenPositions  []AggregatedTrade `json:"open_positions"`
	DuplicateCount int               `json:"duplicate_count"`
	ParseErrors    []tlg.ParseError  `json:"parse_errors"`
}

// ImportResult summarizes an executed import.
type ImportResult struct {
	ImportedCount     int      `json:"imported_count"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	Errors            []string `json:"errors"`
}

// ParseAndAggregate runs the pure import pipeline: parse the log, then
// reconstruct closed trades and open positions from its executions.
func ParseAndAggregate(content string) (closed, open []AggregatedTrade, errs []tlg.ParseError) {
	result := tlg.Parse(content)
	closed, open = Aggregate(result.Executions)
	return closed, open, result.Errors
}

// PreviewImport parses and aggregates a trade log and flags trades whose
// broker execution IDs are already known to the store.
func (s *TradeService) PreviewImport(content string) (*ImportPreview, error) {
	closed, open, parseErrs := ParseAndAggregate(content)

	preview := &ImportPreview{
		TradesToImport: []AggregatedTrade{},
		OpenPositions:  open,
		ParseErrors:    parseErrs,
	}
	if preview.OpenPositions == nil {
		preview.OpenPositions = []AggregatedTrade{}
	}
	if preview.ParseErrors == nil {
		preview.ParseErrors = []tlg.ParseError{}
	}

	for _, trade := range closed {
		duplicate, err := s.tradeHasKnownExecution(trade)
		if err != nil {
			return nil, err
		}
		if duplicate {
			preview.DuplicateCount++
			continue
		}
		preview.TradesToImport = append(preview.TradesToImport, trade)
	}

	return preview, nil
}

// ExecuteImport stores the given aggregated trades as journal trades. With
// skipDuplicates set, trades containing an already-known broker execution
// ID are skipped instead of stored twice.
func (s *TradeService) ExecuteImport(trades []AggregatedTrade, skipDuplicates bool) (*ImportResult, error) {
	result := &ImportResult{}

	for _, trade := range trades {
		if skipDuplicates {
			duplicate, err := s.tradeHasKnownExecution(trade)
			if err != nil {
				return nil, err
			}
			if duplicate {
				result.SkippedDuplicates++
				continue
			}
		}
		if err := s.importSingleTrade(trade); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to import %s: %v", trade.Symbol, err))
			continue
		}
		result.ImportedCount++
	}

	return result, nil
}

func (s *TradeService) tradeHasKnownExecution(trade AggregatedTrade) (bool, error) {
	for _, entry := range trade.Entries {
		exists, err := s.repo.HasBrokerExecution(entry.BrokerExecutionID)
		if err != nil {
			return false, fmt.Errorf("failed to check for duplicate execution: %w", err)
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

func (s *TradeService) importSingleTrade(agg AggregatedTrade) error {
	qty := agg.TotalQuantity

	var entryTime, exitTime string
	if len(agg.Entries) > 0 {
		entryTime = agg.Entries[0].ExecutionTime
	}
	if len(agg.Exits) > 0 {
		exitTime = agg.Exits[len(agg.Exits)-1].ExecutionTime
	}

	now := time.Now().UTC()
	trade := models.Trade{
		ID:         uuid.NewString(),
		Symbol:     agg.Symbol,
		AssetClass: agg.AssetClass,
		Currency:   s.defaults.Currency,
		TradeDate:  agg.TradeDate,
		Direction:  agg.Direction,
		Quantity:   &qty,
		EntryPrice: agg.AvgEntryPrice,
		ExitPrice:  agg.AvgExitPrice,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		Fees:       agg.TotalFees,
		Status:     agg.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.InsertTrade(&trade); err != nil {
		return err
	}

	execs := make([]TradeExecution, 0, len(agg.Entries)+len(agg.Exits))
	for _, leg := range agg.Entries {
		execs = append(execs, TradeExecution{TradeID: trade.ID, Side: ExecutionSideEntry, TradeLeg: leg})
	}
	for _, leg := range agg.Exits {
		execs = append(execs, TradeExecution{TradeID: trade.ID, Side: ExecutionSideExit, TradeLeg: leg})
	}
	return s.repo.RecordExecutions(trade.ID, execs)
}

// GetTradeExecutions returns the persisted fills of a trade in
// (date, time) order.
func (s *TradeService) GetTradeExecutions(id string) ([]TradeExecution, error) {
	execs, err := s.repo.ListExecutions(id)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	if execs == nil {
		execs = []TradeExecution{}
	}
	return execs, nil
}

// exitExecutions converts manually entered exit legs into storable exit
// fills. Manual legs carry no exchange or broker execution ID.
func exitExecutions(tradeID string, exits []models.ExitLeg) []TradeExecution {
	execs := make([]TradeExecution, 0, len(exits))
	for _, leg := range exits {
		fees := decimal.Zero
		if leg.Fees != nil {
			fees = *leg.Fees
		}
		execs = append(execs, TradeExecution{
			TradeID: tradeID,
			Side:    ExecutionSideExit,
			TradeLeg: TradeLeg{
				ExecutionDate: leg.ExitDate,
				ExecutionTime: leg.ExitTime,
				Quantity:      leg.Quantity,
				Price:         leg.Price,
				Fees:          fees,
			},
		})
	}
	return execs
}

// validateInput rejects a manually entered trade on its first invalid
// field. Exit legs get their own pass inside AggregateExits.
func validateInput(input models.CreateTradeInput) error {
	if input.EntryPrice.Sign() <= 0 {
		return fmt.Errorf("entry price must be greater than 0")
	}
	if input.Quantity != nil && input.Quantity.Sign() <= 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}
	if input.ExitPrice != nil && input.ExitPrice.Sign() <= 0 {
		return fmt.Errorf("exit price must be greater than 0")
	}
	if input.StopLossPrice != nil && input.StopLossPrice.Sign() <= 0 {
		return fmt.Errorf("stop loss price must be greater than 0")
	}
	if input.Fees != nil && input.Fees.Sign() < 0 {
		return fmt.Errorf("fees cannot be negative")
	}
	return nil
}
