package sheets

import (
	"context"

	"chipdash/internal/core"
)

// Ports for outbound backup adapters.
type (
	// SaleExporter mirrors a sale into the backup target. ExportSale is
	// an upsert keyed on the sale ID, so re-exporting after an update
	// replaces the previous row.
	SaleExporter interface {
		ExportSale(ctx context.Context, s core.Sale) error
		RemoveSale(ctx context.Context, id int64) error
	}
)
