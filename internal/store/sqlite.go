package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ CandidateStore = (*SQLiteStore)(nil)

// SQLiteStore implements BarStore and CandidateStore backed by a SQLite
// database. It serves as the query-keyed cache in front of external data and
// suggestion providers.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS candidate_queries (
	date          TEXT NOT NULL,
	universe_hash TEXT NOT NULL,
	answered_at   TEXT NOT NULL,
	PRIMARY KEY (date, universe_hash)
);

CREATE TABLE IF NOT EXISTS candidates (
	date          TEXT NOT NULL,
	universe_hash TEXT NOT NULL,
	rank          INTEGER NOT NULL,
	symbol        TEXT NOT NULL,
	score         REAL NOT NULL,
	bias          TEXT NOT NULL,
	reason        TEXT NOT NULL,
	asof          TEXT NOT NULL,
	PRIMARY KEY (date, universe_hash, rank)
);
`
	_, err := s.db.Exec(schema)
	return err
}

const dateLayout = "2006-01-02"

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars upserts a batch of bars inside one transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.Date.UTC().Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("inserting bar %s %s: %w", b.Symbol, b.Date.Format(dateLayout), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for the symbol within [start, end], ascending.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		symbol, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var date string
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date, err = time.ParseInLocation(dateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q for %s: %w", date, symbol, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols with cached bars, sorted.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// CandidateStore implementation
// ---------------------------------------------------------------------------

// WriteCandidates records the answer for one (date, universe) query. Writing
// an empty slice records that the query was answered with no candidates,
// which still counts as a cache hit on later reads.
func (s *SQLiteStore) WriteCandidates(ctx context.Context, date time.Time, universeHash string, cands []domain.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	day := date.UTC().Format(dateLayout)

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO candidate_queries (date, universe_hash, answered_at)
		VALUES (?, ?, ?)`,
		day, universeHash, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM candidates WHERE date = ? AND universe_hash = ?`, day, universeHash); err != nil {
		return err
	}

	for i, c := range cands {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidates (date, universe_hash, rank, symbol, score, bias, reason, asof)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			day, universeHash, i, c.Symbol, c.Score, string(c.Bias), c.Reason,
			c.AsOf.UTC().Format(dateLayout)); err != nil {
			return fmt.Errorf("inserting candidate %s for %s: %w", c.Symbol, day, err)
		}
	}
	return tx.Commit()
}

// ReadCandidates returns the cached answer for a query, preserving rank
// order. The bool reports whether the query was ever answered.
func (s *SQLiteStore) ReadCandidates(ctx context.Context, date time.Time, universeHash string) ([]domain.Candidate, bool, error) {
	day := date.UTC().Format(dateLayout)

	var answeredAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT answered_at FROM candidate_queries WHERE date = ? AND universe_hash = ?`,
		day, universeHash).Scan(&answeredAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, score, bias, reason, asof
		FROM candidates
		WHERE date = ? AND universe_hash = ?
		ORDER BY rank ASC`, day, universeHash)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var cands []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		var bias, asof string
		if err := rows.Scan(&c.Symbol, &c.Score, &bias, &c.Reason, &asof); err != nil {
			return nil, false, err
		}
		c.Bias = domain.Bias(bias)
		c.AsOf, err = time.ParseInLocation(dateLayout, asof, time.UTC)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt asof %q: %w", asof, err)
		}
		cands = append(cands, c)
	}
	return cands, true, rows.Err()
}
