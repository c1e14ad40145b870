package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/logger"
	"TradingGuide/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.Component(log, "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			ticker       TEXT NOT NULL,
			history_len  INTEGER,
			last_date    TEXT,
			last_price   REAL,
			diff_order   INTEGER,
			stationary   INTEGER,
			rmse         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker_ts ON forecast_runs(ticker, timestamp)`,

		`CREATE TABLE IF NOT EXISTS forecast_points (
			run_id  TEXT NOT NULL REFERENCES forecast_runs(id),
			step    INTEGER NOT NULL,
			date    TEXT NOT NULL,
			price   REAL NOT NULL,
			PRIMARY KEY (run_id, step)
		)`,

		`CREATE TABLE IF NOT EXISTS forecast_failures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			ticker     TEXT,
			stage      TEXT,
			kind       TEXT,
			message    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON forecast_failures(timestamp)`,

		`CREATE TABLE IF NOT EXISTS capm_results (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			ticker          TEXT,
			years           INTEGER,
			beta            REAL,
			expected_return REAL,
			observations    INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(report *model.ForecastReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lastDate string
	var lastPrice float64
	if report.History.Len() > 0 {
		last := report.History.Last()
		lastDate, lastPrice = last.Date.Format("2006-01-02"), last.Price
	}
	if _, err := tx.Exec(`INSERT INTO forecast_runs
		(id, timestamp, ticker, history_len, last_date, last_price, diff_order, stationary, rmse)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		report.RunID, report.GeneratedAt.Unix(), report.Ticker, report.History.Len(),
		lastDate, lastPrice, report.Order, report.Stationary, report.RMSE,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO forecast_points (run_id, step, date, price) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range report.Forecast {
		if _, err := stmt.Exec(report.RunID, i+1, p.Date.Format("2006-01-02"), p.Price); err != nil {
			return fmt.Errorf("insert point %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordFailure(evt *FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO forecast_failures
		(timestamp, ticker, stage, kind, message)
		VALUES (?,?,?,?,?)`,
		at.Unix(), evt.Ticker, evt.Stage, evt.Kind, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordCAPM(results []capm.Result, years int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	for _, res := range results {
		if _, err := r.db.Exec(`INSERT INTO capm_results
			(timestamp, ticker, years, beta, expected_return, observations)
			VALUES (?,?,?,?,?,?)`,
			now, res.Ticker, years, res.Beta, res.ExpectedReturn, res.Observations,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
