package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chipdash/internal/core"

	_ "modernc.org/sqlite"
)

// AllStores disables the store filter in a SalesQuery, mirroring the
// "ALL" sentinel accepted on the wire.
const AllStores int64 = 0

// SalesQuery selects a window of sales rows. Start and End are
// inclusive bounds on the applicable period (manual_month when set,
// month otherwise); empty bounds are open.
type SalesQuery struct {
	StoreID int64
	Start   core.Period
	End     core.Period
	Limit   int
}

type SQLiteRepository struct {
	db *sql.DB
}

const saleColumns = `s.id, s.created_at, s.month, s.manual_month, s.chip_type,
	s.chip_number, s.size_cls, s.size_digits, s.price_total, s.store_id,
	COALESCE(st.name, ''), s.note`

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys must be set per connection; the store-delete
	// constraint check depends on it.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListStores returns all stores ordered by name ascending.
func (r *SQLiteRepository) ListStores(ctx context.Context) ([]core.Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM stores ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var out []core.Store
	for rows.Next() {
		var st core.Store
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateStore(ctx context.Context, name string) (core.Store, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO stores (name) VALUES (?)`, name)
	if err != nil {
		return core.Store{}, classify(fmt.Errorf("create store: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Store{}, fmt.Errorf("create store id: %w", err)
	}

	slog.InfoContext(ctx, "Store created", "store_id", id, "store_name", name)
	return core.Store{ID: id, Name: name}, nil
}

func (r *SQLiteRepository) UpdateStore(ctx context.Context, id int64, name string) (core.Store, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE stores SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return core.Store{}, classify(fmt.Errorf("update store: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Store{}, fmt.Errorf("update store rows: %w", err)
	}
	if n == 0 {
		return core.Store{}, fmt.Errorf("update store %d: %w", id, ErrNotFound)
	}
	return core.Store{ID: id, Name: name}, nil
}

// DeleteStore removes a store. When sales still reference it the
// foreign key blocks the delete and the error classifies as
// ErrConstraint.
func (r *SQLiteRepository) DeleteStore(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return classify(fmt.Errorf("delete store: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete store rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete store %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Store deleted", "store_id", id)
	return nil
}

// InsertSale persists one sale. The month column is derived from the
// insertion time; blank optional fields are stored as NULL so a later
// full-field update clears rather than ignores them. The returned row
// carries the joined store name.
func (r *SQLiteRepository) InsertSale(ctx context.Context, s core.Sale) (core.Sale, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sales (created_at, month, manual_month, chip_type, chip_number,
			size_cls, size_digits, price_total, store_id, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now, string(core.PeriodOf(now)),
		nullStr(string(s.ManualMonth)), s.ChipType, nullStr(s.ChipNumber),
		nullStr(string(s.SizeCls)), nullStr(s.SizeDigits), s.PriceTotal,
		nullID(s.StoreID), nullStr(s.Note))
	if err != nil {
		return core.Sale{}, classify(fmt.Errorf("insert sale: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Sale{}, fmt.Errorf("insert sale id: %w", err)
	}

	slog.InfoContext(ctx, "Sale recorded",
		"sale_id", id,
		"chip_type", s.ChipType,
		"price_total", s.PriceTotal,
		"store_id", s.StoreID)

	return r.GetSale(ctx, id)
}

func (r *SQLiteRepository) GetSale(ctx context.Context, id int64) (core.Sale, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales s LEFT JOIN stores st ON st.id = s.store_id
		WHERE s.id = ?`, id)
	s, err := scanSale(row)
	if err == sql.ErrNoRows {
		return core.Sale{}, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Sale{}, fmt.Errorf("get sale: %w", err)
	}
	return s, nil
}

// ListSales returns sales newest first, joined with their store name.
func (r *SQLiteRepository) ListSales(ctx context.Context, q SalesQuery) ([]core.Sale, error) {
	if q.Limit < 1 {
		q.Limit = 500
	}

	var (
		conds []string
		args  []any
	)
	if q.Start != "" {
		conds = append(conds, `COALESCE(s.manual_month, s.month) >= ?`)
		args = append(args, string(q.Start))
	}
	if q.End != "" {
		conds = append(conds, `COALESCE(s.manual_month, s.month) <= ?`)
		args = append(args, string(q.End))
	}
	if q.StoreID != AllStores {
		conds = append(conds, `s.store_id = ?`)
		args = append(args, q.StoreID)
	}

	query := `SELECT ` + saleColumns + `
		FROM sales s LEFT JOIN stores st ON st.id = s.store_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var out []core.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSale replaces every mutable column of a sale (last writer
// wins, no version check) and re-queues it for export.
func (r *SQLiteRepository) UpdateSale(ctx context.Context, id int64, s core.Sale) (core.Sale, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales SET chip_type = ?, chip_number = ?, size_cls = ?,
			size_digits = ?, price_total = ?, store_id = ?, manual_month = ?,
			note = ?, synced = 0, sync_error = 0
		WHERE id = ?`,
		s.ChipType, nullStr(s.ChipNumber), nullStr(string(s.SizeCls)),
		nullStr(s.SizeDigits), s.PriceTotal, nullID(s.StoreID),
		nullStr(string(s.ManualMonth)), nullStr(s.Note), id)
	if err != nil {
		return core.Sale{}, classify(fmt.Errorf("update sale: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Sale{}, fmt.Errorf("update sale rows: %w", err)
	}
	if n == 0 {
		return core.Sale{}, fmt.Errorf("update sale %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Sale updated", "sale_id", id, "price_total", s.PriceTotal)
	return r.GetSale(ctx, id)
}

func (r *SQLiteRepository) DeleteSale(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return classify(fmt.Errorf("delete sale: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sale rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete sale %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Sale deleted", "sale_id", id)
	return nil
}

// ListPendingSync returns sales not yet exported to the backup
// spreadsheet, oldest first.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales s LEFT JOIN stores st ON st.id = s.store_id
		WHERE s.synced = 0 AND s.sync_error = 0
		ORDER BY s.id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var out []core.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending sale: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sales SET synced = 1, sync_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sales SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Sale marked with sync error", "sale_id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (core.Sale, error) {
	var (
		s           core.Sale
		manualMonth sql.NullString
		chipNumber  sql.NullString
		sizeCls     sql.NullString
		sizeDigits  sql.NullString
		storeID     sql.NullInt64
		note        sql.NullString
	)
	err := row.Scan(&s.ID, &s.CreatedAt, (*string)(&s.Month), &manualMonth,
		&s.ChipType, &chipNumber, &sizeCls, &sizeDigits, &s.PriceTotal,
		&storeID, &s.StoreName, &note)
	if err != nil {
		return core.Sale{}, err
	}
	s.ManualMonth = core.Period(manualMonth.String)
	s.ChipNumber = chipNumber.String
	s.SizeCls = core.SizeClass(sizeCls.String)
	s.SizeDigits = sizeDigits.String
	s.StoreID = storeID.Int64
	s.Note = note.String
	return s, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
