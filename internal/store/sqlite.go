package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockPulse/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore persists symbols and bars to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	q      querier
	mu     *sync.Mutex
	inTx   bool
	logger *zerolog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps in-memory databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, q: db, mu: &sync.Mutex{}, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT    NOT NULL UNIQUE,
			company_name TEXT,
			latest_price REAL,
			last_updated INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS daily_data (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id     INTEGER NOT NULL REFERENCES stocks(id),
			date         TEXT    NOT NULL,
			open         REAL    NOT NULL,
			high         REAL    NOT NULL,
			low          REAL    NOT NULL,
			close        REAL    NOT NULL,
			volume       INTEGER NOT NULL,
			sma_20       REAL,
			daily_return REAL,
			UNIQUE (stock_id, date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// lock serializes writers outside of a transaction; inside one the owner already holds it.
func (s *SQLiteStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func scanSymbol(sc interface{ Scan(...any) error }) (*model.Symbol, error) {
	var (
		sym     model.Symbol
		name    sql.NullString
		price   sql.NullFloat64
		updated sql.NullInt64
	)
	if err := sc.Scan(&sym.ID, &sym.Ticker, &name, &price, &updated); err != nil {
		return nil, err
	}
	sym.CompanyName = name.String
	if price.Valid {
		p := price.Float64
		sym.LatestPrice = &p
	}
	if updated.Valid {
		u := time.Unix(updated.Int64, 0).UTC()
		sym.LastUpdated = &u
	}
	return &sym, nil
}

const symbolColumns = `id, symbol, company_name, latest_price, last_updated`

func (s *SQLiteStore) FindSymbol(ctx context.Context, ticker string) (*model.Symbol, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+symbolColumns+` FROM stocks WHERE symbol = ?`, ticker)
	sym, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find symbol %s: %w", ticker, err)
	}
	return sym, nil
}

func (s *SQLiteStore) CreateSymbol(ctx context.Context, ticker, name string) (*model.Symbol, error) {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `INSERT INTO stocks (symbol, company_name) VALUES (?, ?)`, ticker, name)
	if err != nil {
		return nil, fmt.Errorf("create symbol %s: %w", ticker, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create symbol %s: %w", ticker, err)
	}
	return &model.Symbol{ID: id, Ticker: ticker, CompanyName: name}, nil
}

func (s *SQLiteStore) UpdateSymbol(ctx context.Context, sym *model.Symbol) error {
	defer s.lock()()

	var updated sql.NullInt64
	if sym.LastUpdated != nil {
		updated = sql.NullInt64{Int64: sym.LastUpdated.Unix(), Valid: true}
	}
	var price sql.NullFloat64
	if sym.LatestPrice != nil {
		price = sql.NullFloat64{Float64: *sym.LatestPrice, Valid: true}
	}
	_, err := s.q.ExecContext(ctx,
		`UPDATE stocks SET company_name = ?, latest_price = ?, last_updated = ? WHERE id = ?`,
		sym.CompanyName, price, updated, sym.ID)
	if err != nil {
		return fmt.Errorf("update symbol %s: %w", sym.Ticker, err)
	}
	return nil
}

func (s *SQLiteStore) AllSymbols(ctx context.Context) ([]model.Symbol, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+symbolColumns+` FROM stocks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, *sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LatestBarDate(ctx context.Context, symbolID int64) (time.Time, bool, error) {
	var date sql.NullString
	err := s.q.QueryRowContext(ctx, `SELECT MAX(date) FROM daily_data WHERE stock_id = ?`, symbolID).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest bar date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	d, err := model.ParseDate(date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse stored date %q: %w", date.String, err)
	}
	return d, true, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (s *SQLiteStore) InsertBar(ctx context.Context, bar *model.DailyBar) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `INSERT INTO daily_data
		(stock_id, date, open, high, low, close, volume, sma_20, daily_return)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (stock_id, date) DO NOTHING`,
		bar.SymbolID, bar.Date.Format(model.DateLayout),
		bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		nullable(bar.SMA20), nullable(bar.DailyReturn),
	)
	if err != nil {
		return fmt.Errorf("insert bar: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert bar: %w", err)
	}
	if n == 0 {
		return &model.DuplicateBarError{SymbolID: bar.SymbolID, Date: bar.Date}
	}
	if id, err := res.LastInsertId(); err == nil {
		bar.ID = id
	}
	return nil
}

const barColumns = `id, stock_id, date, open, high, low, close, volume, sma_20, daily_return`

func (s *SQLiteStore) queryBars(ctx context.Context, query string, args ...any) ([]model.DailyBar, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []model.DailyBar
	for rows.Next() {
		var (
			bar  model.DailyBar
			date string
			sma  sql.NullFloat64
			ret  sql.NullFloat64
		)
		if err := rows.Scan(&bar.ID, &bar.SymbolID, &date, &bar.Open, &bar.High, &bar.Low,
			&bar.Close, &bar.Volume, &sma, &ret); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if bar.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		if sma.Valid {
			v := sma.Float64
			bar.SMA20 = &v
		}
		if ret.Valid {
			v := ret.Float64
			bar.DailyReturn = &v
		}
		out = append(out, bar)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentBars(ctx context.Context, symbolID int64, limit int, mostRecentFirst bool) ([]model.DailyBar, error) {
	bars, err := s.queryBars(ctx,
		`SELECT `+barColumns+` FROM daily_data WHERE stock_id = ? ORDER BY date DESC LIMIT ?`,
		symbolID, limit)
	if err != nil {
		return nil, err
	}
	if !mostRecentFirst {
		reverse(bars)
	}
	return bars, nil
}

func (s *SQLiteStore) AllBars(ctx context.Context, symbolID int64, ascending bool) ([]model.DailyBar, error) {
	order := "ASC"
	if !ascending {
		order = "DESC"
	}
	return s.queryBars(ctx,
		`SELECT `+barColumns+` FROM daily_data WHERE stock_id = ? ORDER BY date `+order, symbolID)
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rolls back when fn panics.
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	txStore := &SQLiteStore{db: s.db, q: tx, mu: s.mu, inTx: true, logger: s.logger}
	if err := fn(txStore); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.inTx {
		return errors.New("close called inside a transaction")
	}
	s.logger.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func reverse(bars []model.DailyBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
