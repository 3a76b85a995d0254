package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect struct {
	Name       string
	DriverName string
	idColumn   string
	numeric    bool
}

var (
	Postgres = Dialect{Name: "postgres", DriverName: "pgx", idColumn: "id BIGSERIAL PRIMARY KEY", numeric: true}
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite", idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT"}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) placeholder(n int) string {
	if d.numeric {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var recordColumns = []string{
	ingest.ColCountry,
	ingest.ColProductGroup,
	ingest.ColVendor,
	ingest.ColShipmentMode,
	ingest.ColManufacturingSite,
	ingest.ColQuantity,
	ingest.ColUnitPrice,
	ingest.ColFreightCost,
	ingest.ColDeliveredDate,
}

const insertBatchSize = 500

// SQLSource reads records from a table shaped like the hosted dashboard's.
// Text-typed cost and date columns are coerced on read, so rows written by
// other tools with free-form values are tolerated.
type SQLSource struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// OpenSQL connects, pings with a timeout and ensures the record table exists.
func OpenSQL(ctx context.Context, driver, dsn, table string) (*SQLSource, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: database DSN missing", dialect.Name)
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	src := NewSQLSource(db, dialect, table)
	if err := src.EnsureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}

func NewSQLSource(db *sql.DB, dialect Dialect, table string) *SQLSource {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &SQLSource{db: db, dialect: dialect, table: table}
}

func (s *SQLSource) Kind() string { return s.dialect.Name }

func (s *SQLSource) Close() error { return s.db.Close() }

func (s *SQLSource) EnsureTable(ctx context.Context) error {
	quantity, price := "BIGINT", "NUMERIC"
	if !s.dialect.numeric {
		quantity, price = "INTEGER", "TEXT"
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	%s,
	country TEXT,
	product_group TEXT,
	vendor TEXT,
	shipment_mode TEXT,
	manufacturing_site TEXT,
	line_item_quantity %s,
	unit_price %s,
	freight_cost_usd TEXT,
	delivered_to_client_date TEXT
)`, quoteIdentifier(s.table), s.dialect.idColumn, quantity, price)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Fetch pushes the value filters down as IN clauses. The date range is
// applied after coercion because the date column is free text.
func (s *SQLSource) Fetch(ctx context.Context, filter models.Filter) ([]models.RawRecord, error) {
	var (
		where []string
		args  []any
	)
	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		marks := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			marks[i] = s.dialect.placeholder(len(args))
		}
		where = append(where, fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ", ")))
	}
	in(ingest.ColCountry, filter.Countries)
	in(ingest.ColProductGroup, filter.ProductGroups)
	in(ingest.ColVendor, filter.Vendors)
	in(ingest.ColShipmentMode, filter.ShipmentModes)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(recordColumns, ", "), quoteIdentifier(s.table))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var records []models.RawRecord
	cells := make([]sql.NullString, len(recordColumns))
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		row := make(ingest.Row, len(recordColumns))
		for i, column := range recordColumns {
			if cells[i].Valid {
				row[column] = cells[i].String
			}
		}
		rec, _, ok := ingest.Normalize(row)
		if !ok {
			continue
		}
		if filter.DateRange != nil && !filter.Matches(rec) {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return records, nil
}

func (s *SQLSource) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	var opts models.FilterOptions
	targets := []struct {
		column string
		into   *[]string
	}{
		{ingest.ColCountry, &opts.Countries},
		{ingest.ColProductGroup, &opts.ProductGroups},
		{ingest.ColVendor, &opts.Vendors},
		{ingest.ColShipmentMode, &opts.ShipmentModes},
	}
	for _, t := range targets {
		values, err := s.distinct(ctx, t.column)
		if err != nil {
			return models.FilterOptions{}, err
		}
		*t.into = values
	}
	return opts, nil
}

func (s *SQLSource) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL AND TRIM(%[1]s) <> '' ORDER BY %[1]s",
		column, quoteIdentifier(s.table),
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Insert writes records in batches inside one transaction.
func (s *SQLSource) Insert(ctx context.Context, records []models.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(records); start += insertBatchSize {
		batch := records[start:min(start+insertBatchSize, len(records))]
		query, args := s.insertStatement(batch)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(records), nil
}

func (s *SQLSource) insertStatement(batch []models.RawRecord) (string, []any) {
	args := make([]any, 0, len(batch)*len(recordColumns))
	tuples := make([]string, 0, len(batch))
	for _, r := range batch {
		var quantity, delivered any
		if r.Quantity != nil {
			quantity = *r.Quantity
		}
		if d, ok := r.Delivered(); ok {
			delivered = d.Format("2006-01-02")
		}
		values := []any{
			nullable(r.Country),
			nullable(r.ProductGroup),
			nullable(r.Vendor),
			nullable(r.ShipmentMode),
			nullable(r.ManufacturingSite),
			quantity,
			decimalArg(r.UnitPrice),
			decimalArg(r.FreightCost),
			delivered,
		}
		marks := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			marks[i] = s.dialect.placeholder(len(args))
		}
		tuples = append(tuples, "("+strings.Join(marks, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(s.table), strings.Join(recordColumns, ", "), strings.Join(tuples, ", "))
	return query, args
}

func (s *SQLSource) Count(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(s.table)))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func decimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func quoteIdentifier(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
