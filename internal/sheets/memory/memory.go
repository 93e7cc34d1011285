// Package memory is an in-process SaleExporter used in tests and when
// no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"sync"

	"chipdash/internal/core"
	ports "chipdash/internal/sheets"
)

var errExporterDown = errors.New("exporter unavailable")

type Store struct {
	mu      sync.Mutex
	rows    map[int64]core.Sale
	failing bool
}

var _ ports.SaleExporter = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]core.Sale)}
}

// SetFailing makes every subsequent call return an error, for
// exercising error paths in worker tests.
func (s *Store) SetFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *Store) ExportSale(_ context.Context, sale core.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errExporterDown
	}
	s.rows[sale.ID] = sale
	return nil
}

func (s *Store) RemoveSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errExporterDown
	}
	delete(s.rows, id)
	return nil
}

// Get returns the exported copy of a sale, if any.
func (s *Store) Get(id int64) (core.Sale, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.rows[id]
	return sale, ok
}

// Len returns the number of exported rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
