package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockPredictor/internal/model"
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API server read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			ticker      TEXT NOT NULL,
			start_date  INTEGER NOT NULL,
			end_date    INTEGER NOT NULL,
			look_back   INTEGER NOT NULL,
			epochs      INTEGER NOT NULL,
			samples     INTEGER NOT NULL,
			final_loss  REAL,
			next_close  REAL,
			rmse        REAL,
			mae         REAL,
			mape        REAL,
			plot_path   TEXT,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker)`,

		`CREATE TABLE IF NOT EXISTS run_points (
			run_id    TEXT NOT NULL REFERENCES runs(id),
			seq       INTEGER NOT NULL,
			date      INTEGER NOT NULL,
			actual    REAL,
			predicted REAL,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rec *model.RunRecord) error {
	if rec == nil {
		return errors.New("nil run record")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC().Truncate(time.Second)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, ticker, start_date, end_date, look_back, epochs, samples,
		 final_loss, next_close, rmse, mae, mape, plot_path, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Ticker, rec.Start.Unix(), rec.End.Unix(),
		rec.LookBack, rec.Epochs, rec.Samples,
		rec.FinalLoss, rec.NextClose,
		rec.Metrics.RMSE, rec.Metrics.MAE, rec.Metrics.MAPE,
		rec.PlotPath, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_points (run_id, seq, date, actual, predicted) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()
	for i, p := range rec.Points {
		if _, err := stmt.Exec(rec.ID, i, p.Date.Unix(), p.Actual, p.Predicted); err != nil {
			return fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("run recorded",
		zap.String("id", rec.ID),
		zap.String("ticker", rec.Ticker),
		zap.Int("points", len(rec.Points)))
	return nil
}

const summaryColumns = `id, ticker, start_date, end_date, look_back, epochs, samples,
	final_loss, next_close, rmse, mae, mape, plot_path, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (model.RunSummary, error) {
	var (
		s                     model.RunSummary
		start, end, createdAt int64
		plotPath              sql.NullString
	)
	err := row.Scan(&s.ID, &s.Ticker, &start, &end, &s.LookBack, &s.Epochs, &s.Samples,
		&s.FinalLoss, &s.NextClose, &s.Metrics.RMSE, &s.Metrics.MAE, &s.Metrics.MAPE,
		&plotPath, &createdAt)
	if err != nil {
		return s, err
	}
	s.Start = time.Unix(start, 0).UTC()
	s.End = time.Unix(end, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.PlotPath = plotPath.String
	return s, nil
}

func (r *SQLiteRecorder) ListRuns(limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`SELECT `+summaryColumns+` FROM runs
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []model.RunSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) GetRun(id string) (*model.RunRecord, error) {
	s, err := scanSummary(r.db.QueryRow(`SELECT `+summaryColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := r.db.Query(`SELECT date, actual, predicted FROM run_points WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	rec := &model.RunRecord{RunSummary: s, Points: []model.Point{}}
	for rows.Next() {
		var (
			p    model.Point
			date int64
		)
		if err := rows.Scan(&date, &p.Actual, &p.Predicted); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Date = time.Unix(date, 0).UTC()
		rec.Points = append(rec.Points, p)
	}
	return rec, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
