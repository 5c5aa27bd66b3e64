// Package storage provides the journal's trade persistence. MemoryStore is
// the in-process implementation; it keeps trades in insertion order,
// attaches per-fill executions to each trade, and indexes broker execution
// IDs for import deduplication.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gbFinch/FreeTradingJournal/internal/journal"
	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// MemoryStore is a thread-safe in-memory TradeRepository.
type MemoryStore struct {
	mu         sync.RWMutex
	trades     map[string]models.Trade
	order      []string
	legs       map[string][]journal.TradeExecution
	executions map[string]string // broker execution ID -> trade ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades:     make(map[string]models.Trade),
		legs:       make(map[string][]journal.TradeExecution),
		executions: make(map[string]string),
	}
}

func (s *MemoryStore) InsertTrade(t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[t.ID]; exists {
		return fmt.Errorf("trade %s already exists", t.ID)
	}
	s.trades[t.ID] = *t
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryStore) UpdateTrade(t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[t.ID]; !exists {
		return fmt.Errorf("trade %s not found", t.ID)
	}
	s.trades[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTrade(id string) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) ListTrades(filter journal.TradeFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, 0, len(s.order))
	for _, id := range s.order {
		t := s.trades[id]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && t.TradeDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.TradeDate.After(*filter.EndDate) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MemoryStore) DeleteTrade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[id]; !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	delete(s.trades, id)
	delete(s.legs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for execID, tradeID := range s.executions {
		if tradeID == id {
			delete(s.executions, execID)
		}
	}
	return nil
}

func (s *MemoryStore) HasBrokerExecution(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.executions[id]
	return ok, nil
}

func (s *MemoryStore) RecordExecutions(tradeID string, execs []journal.TradeExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendExecutions(tradeID, execs)
	return nil
}

// ReplaceExitExecutions drops a trade's stored exit fills and records the
// given set in their place. Entry fills are untouched.
func (s *MemoryStore) ReplaceExitExecutions(tradeID string, execs []journal.TradeExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]journal.TradeExecution, 0, len(s.legs[tradeID]))
	for _, e := range s.legs[tradeID] {
		if e.Side == journal.ExecutionSideExit {
			if e.BrokerExecutionID != "" {
				delete(s.executions, e.BrokerExecutionID)
			}
			continue
		}
		kept = append(kept, e)
	}
	s.legs[tradeID] = kept
	s.appendExecutions(tradeID, execs)
	return nil
}

func (s *MemoryStore) ListExecutions(tradeID string) ([]journal.TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.legs[tradeID]
	out := make([]journal.TradeExecution, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExecutionDate.Equal(out[j].ExecutionDate) {
			return out[i].ExecutionDate.Before(out[j].ExecutionDate)
		}
		return out[i].ExecutionTime < out[j].ExecutionTime
	})
	return out, nil
}

// appendExecutions assumes the write lock is held.
func (s *MemoryStore) appendExecutions(tradeID string, execs []journal.TradeExecution) {
	for _, e := range execs {
		s.legs[tradeID] = append(s.legs[tradeID], e)
		if e.BrokerExecutionID != "" {
			s.executions[e.BrokerExecutionID] = tradeID
		}
	}
}
