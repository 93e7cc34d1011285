package services

import (
	"context"
	"fmt"
	"log/slog"

	"chipdash/internal/amqp"
	"chipdash/internal/core"
	"chipdash/internal/storage"
)

// SaleService orchestrates sale and store operations across SQLite and AMQP.
// Writes go to SQLite first; the export event is published best-effort and
// a broker failure never fails the request.
type SaleService struct {
	storage       *storage.SQLiteRepository
	amqpClient    *amqp.Client
	storeRequired bool
}

func NewSaleService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, storeRequired bool) *SaleService {
	return &SaleService{
		storage:       storage,
		amqpClient:    amqpClient,
		storeRequired: storeRequired,
	}
}

// CreateSale validates and saves a sale locally, then publishes a sync event.
func (s *SaleService) CreateSale(ctx context.Context, sale core.Sale) (core.Sale, error) {
	if err := sale.Validate(s.storeRequired); err != nil {
		return core.Sale{}, err
	}

	saved, err := s.storage.InsertSale(ctx, sale)
	if err != nil {
		return core.Sale{}, fmt.Errorf("save sale: %w", err)
	}

	if err := s.publishSync(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"id", saved.ID, "error", err)
		// Don't fail the request - the sale is saved locally
	}

	return saved, nil
}

// UpdateSale validates and replaces a sale, then publishes a sync event.
func (s *SaleService) UpdateSale(ctx context.Context, id int64, sale core.Sale) (core.Sale, error) {
	if err := sale.Validate(s.storeRequired); err != nil {
		return core.Sale{}, err
	}

	saved, err := s.storage.UpdateSale(ctx, id, sale)
	if err != nil {
		if storage.IsNotFound(err) {
			return core.Sale{}, err
		}
		return core.Sale{}, fmt.Errorf("update sale: %w", err)
	}

	if err := s.publishSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"id", id, "error", err)
	}

	return saved, nil
}

// DeleteSale removes a sale locally and publishes a delete event.
func (s *SaleService) DeleteSale(ctx context.Context, id int64) error {
	if err := s.storage.DeleteSale(ctx, id); err != nil {
		if storage.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("delete sale: %w", err)
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event",
			"id", id, "error", err)
	}

	return nil
}

func (s *SaleService) GetSale(ctx context.Context, id int64) (core.Sale, error) {
	return s.storage.GetSale(ctx, id)
}

func (s *SaleService) ListSales(ctx context.Context, q storage.SalesQuery) ([]core.Sale, error) {
	return s.storage.ListSales(ctx, q)
}

func (s *SaleService) ListStores(ctx context.Context) ([]core.Store, error) {
	return s.storage.ListStores(ctx)
}

func (s *SaleService) CreateStore(ctx context.Context, name string) (core.Store, error) {
	if err := (core.Store{Name: name}).Validate(); err != nil {
		return core.Store{}, err
	}
	return s.storage.CreateStore(ctx, name)
}

func (s *SaleService) UpdateStore(ctx context.Context, id int64, name string) (core.Store, error) {
	if err := (core.Store{Name: name}).Validate(); err != nil {
		return core.Store{}, err
	}
	return s.storage.UpdateStore(ctx, id, name)
}

// DeleteStore removes a store. Stores referenced by sales stay put: the
// foreign key blocks the delete and the error classifies as a constraint.
func (s *SaleService) DeleteStore(ctx context.Context, id int64) error {
	return s.storage.DeleteStore(ctx, id)
}

func (s *SaleService) publishSync(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync event")
		return nil
	}
	return s.amqpClient.PublishSaleSync(ctx, id)
}

func (s *SaleService) publishDelete(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping delete event")
		return nil
	}
	return s.amqpClient.PublishSaleDelete(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *SaleService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close sale service: %v", errs)
	}

	return nil
}
