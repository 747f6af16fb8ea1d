package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

const accessConfigTable = "auth_config"

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// Store is a repository.Store backed by a SQL database through sqlx.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *zap.Logger
	now     func() time.Time
}

// Open connects, verifies the connection and creates missing tables.
func Open(ctx context.Context, dialect Dialect, dsn string, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect.Name, err)
	}
	if dialect.singleConn {
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect.Name, err)
	}

	s := &Store{db: db, dialect: dialect, logger: logger, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sql store ready", zap.String("dialect", dialect.Name))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, access_code TEXT NOT NULL)`, accessConfigTable),
	}
	for _, g := range models.Groups {
		statements = append(statements, s.createTableSQL(models.SchemaFor(g)))
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *Store) createTableSQL(schema *models.Schema) string {
	cols := []string{
		"id " + s.dialect.idColumn,
		"created_at " + s.dialect.timestampType + " NOT NULL",
		"collection_date VARCHAR(10) NOT NULL",
		"production_line VARCHAR(16) NOT NULL",
		"sku VARCHAR(255) NOT NULL DEFAULT ''",
		"bag_weight " + s.dialect.floatType + " NOT NULL DEFAULT 0",
		"panel_parameter " + s.dialect.floatType,
		"acrisson " + s.dialect.floatType,
	}
	for _, f := range schema.Measurements {
		cols = append(cols, quote(f.Column)+" "+s.dialect.floatType+" NOT NULL DEFAULT 0")
	}
	cols = append(cols, fmt.Sprintf("CONSTRAINT %s_date_line_key UNIQUE (collection_date, production_line)", schema.Table))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", schema.Table, strings.Join(cols, ",\n\t"))
}

// dataColumns lists every column except id and created_at, in bind order.
func dataColumns(schema *models.Schema) []string {
	cols := []string{"collection_date", "production_line", "sku", "bag_weight", "panel_parameter", "acrisson"}
	for _, f := range schema.Measurements {
		cols = append(cols, quote(f.Column))
	}
	return cols
}

func selectColumns(schema *models.Schema) string {
	return "id, created_at, " + strings.Join(dataColumns(schema), ", ")
}

func dataValues(schema *models.Schema, r models.Record) []any {
	values := []any{r.CollectionDate, r.ProductionLine, r.SKU, r.BagWeight, nullFloat(r.PanelParameter), nullFloat(r.Acrisson)}
	for _, f := range schema.Measurements {
		values = append(values, r.Measurements[f.Key])
	}
	return values
}

func (s *Store) List(ctx context.Context, group models.Group) ([]models.Record, error) {
	schema := models.SchemaFor(group)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY collection_date DESC, id DESC", selectColumns(schema), schema.Table)
	return s.query(ctx, schema, query)
}

func (s *Store) ListByDate(ctx context.Context, group models.Group, date string) ([]models.Record, error) {
	schema := models.SchemaFor(group)
	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE collection_date = ? ORDER BY id DESC", selectColumns(schema), schema.Table))
	return s.query(ctx, schema, query, date)
}

func (s *Store) query(ctx context.Context, schema *models.Schema, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", schema.Table, err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", schema.Table, err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, group models.Group, id int64) (models.Record, error) {
	return s.get(ctx, s.db, models.SchemaFor(group), id, "")
}

func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, schema *models.Schema, id int64, lock string) (models.Record, error) {
	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?%s", selectColumns(schema), schema.Table, lock))
	rec, err := scanRecord(q.QueryRowxContext(ctx, query, id), schema)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, repository.ErrNotFound
	}
	return rec, err
}

func (s *Store) Create(ctx context.Context, record models.Record) (models.Record, error) {
	schema := models.SchemaFor(record.Group)
	record.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	cols := append([]string{"created_at"}, dataColumns(schema)...)
	values := append([]any{record.CreatedAt}, dataValues(schema, record)...)
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		schema.Table, strings.Join(cols, ", "), placeholders(len(cols))))

	if err := s.db.QueryRowxContext(ctx, query, values...).Scan(&record.ID); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return models.Record{}, repository.ErrDuplicate
		}
		return models.Record{}, fmt.Errorf("insert into %s: %w", schema.Table, err)
	}
	return record, nil
}

func (s *Store) Update(ctx context.Context, group models.Group, id int64, patch models.Patch) (models.Record, error) {
	schema := models.SchemaFor(group)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Record{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := s.get(ctx, tx, schema, id, s.dialect.lockClause)
	if err != nil {
		return models.Record{}, err
	}
	updated := patch.Apply(existing)

	cols := dataColumns(schema)
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = c + " = ?"
	}
	query := tx.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", schema.Table, strings.Join(assignments, ", ")))
	args := append(dataValues(schema, updated), id)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return models.Record{}, repository.ErrDuplicate
		}
		return models.Record{}, fmt.Errorf("update %s: %w", schema.Table, err)
	}
	if err := tx.Commit(); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return models.Record{}, repository.ErrDuplicate
		}
		return models.Record{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, group models.Group, id int64) error {
	schema := models.SchemaFor(group)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", schema.Table)), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", schema.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", schema.Table, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) AccessCode(ctx context.Context) (string, error) {
	var code string
	err := s.db.GetContext(ctx, &code, fmt.Sprintf("SELECT access_code FROM %s ORDER BY id LIMIT 1", accessConfigTable))
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrAccessCodeMissing
	}
	if err != nil {
		return "", fmt.Errorf("read access code: %w", err)
	}
	return code, nil
}

func (s *Store) SeedAccessCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("access code must not be empty")
	}
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (id, access_code) VALUES (1, ?) ON CONFLICT (id) DO NOTHING", accessConfigTable))
	if _, err := s.db.ExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("seed access code: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, schema *models.Schema) (models.Record, error) {
	rec := models.Record{
		Group:        schema.Group,
		Measurements: make(map[string]float64, len(schema.Measurements)),
	}
	var (
		createdAt any
		panel     sql.NullFloat64
		acrisson  sql.NullFloat64
	)
	measurements := make([]float64, len(schema.Measurements))

	dest := []any{&rec.ID, &createdAt, &rec.CollectionDate, &rec.ProductionLine, &rec.SKU, &rec.BagWeight, &panel, &acrisson}
	for i := range measurements {
		dest = append(dest, &measurements[i])
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, err
		}
		return models.Record{}, fmt.Errorf("scan %s row: %w", schema.Table, err)
	}

	ts, err := toTime(createdAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("scan %s created_at: %w", schema.Table, err)
	}
	rec.CreatedAt = ts
	if panel.Valid {
		rec.PanelParameter = models.Float(panel.Float64)
	}
	if acrisson.Valid {
		rec.Acrisson = models.Float(acrisson.Float64)
	}
	for i, f := range schema.Measurements {
		rec.Measurements[f.Key] = measurements[i]
	}
	return rec, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// toTime normalises the driver-specific representation of a timestamp column.
func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}
