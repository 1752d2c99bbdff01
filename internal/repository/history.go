package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const runsTable = "runs"

var runColumns = []string{
	"id", "document_id", "file_name", "sha256", "mime_type", "pages", "status", "stage",
	"error_code", "error_message", "records", "unnormalized", "duration_ms", "created_at",
}

// Run is one processed document in the history log.
type Run struct {
	ID           string              `json:"id"`
	DocumentID   string              `json:"document_id"`
	FileName     string              `json:"file_name"`
	SHA256       string              `json:"sha256,omitempty"`
	MIMEType     string              `json:"mime_type,omitempty"`
	Pages        int                 `json:"pages"`
	Status       constants.RunStatus `json:"status"`
	Stage        constants.Stage     `json:"stage,omitempty"`
	ErrorCode    string              `json:"error_code,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Records      int                 `json:"records"`
	Unnormalized int                 `json:"unnormalized"`
	DurationMs   int64               `json:"duration_ms"`
	CreatedAt    time.Time           `json:"created_at"`
}

// RunRepository stores the processing history. It never feeds back into processing.
type RunRepository interface {
	Record(ctx context.Context, run *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Clear(ctx context.Context) (int64, error)
	// Ping reports whether the history database is reachable.
	Ping(ctx context.Context) error
	Close()
}

const (
	defaultListLimit = 100
	pingTimeout      = 2 * time.Second
)

// SQLRunRepository keeps runs in a SQL table through ent's query builder.
type SQLRunRepository struct {
	db     *DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB, logger *slog.Logger) *SQLRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRunRepository{db: db, logger: logger}
}

// Record inserts a run, assigning an ID and timestamp when missing.
func (r *SQLRunRepository) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return common.ErrInvalidInput
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.ID, run.DocumentID, run.FileName, run.SHA256, run.MIMEType, run.Pages,
			string(run.Status), string(run.Stage), run.ErrorCode, run.ErrorMessage,
			run.Records, run.Unnormalized, run.DurationMs, run.CreatedAt,
		).
		Query()

	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to record run", "document_id", run.DocumentID, "error", err)
		return fmt.Errorf("%w: record run: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("history.record.ok", "run_id", run.ID, "status", run.Status)
	return nil
}

// Ping checks the connection within a short timeout.
func (r *SQLRunRepository) Ping(ctx context.Context) error {
	if err := r.db.HealthCheck(ctx, pingTimeout); err != nil {
		return fmt.Errorf("%w: ping history: %v", common.ErrDatabase, err)
	}
	return nil
}

// List returns the most recent runs first.
func (r *SQLRunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	b := entsql.Dialect(r.db.Dialect())
	query, args := b.Select(runColumns...).
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to list runs", "error", err)
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run           Run
			status, stage string
		)
		if err := rows.Scan(
			&run.ID, &run.DocumentID, &run.FileName, &run.SHA256, &run.MIMEType, &run.Pages,
			&status, &stage, &run.ErrorCode, &run.ErrorMessage,
			&run.Records, &run.Unnormalized, &run.DurationMs, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", common.ErrDatabase, err)
		}
		run.Status = constants.RunStatus(status)
		run.Stage = constants.Stage(stage)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	return runs, nil
}

// Clear deletes every run and reports how many were removed.
func (r *SQLRunRepository) Clear(ctx context.Context) (int64, error) {
	query, args := entsql.Dialect(r.db.Dialect()).Delete(runsTable).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to clear runs", "error", err)
		return 0, fmt.Errorf("%w: clear runs: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: clear runs: %v", common.ErrDatabase, err)
	}
	r.logger.Info("history.clear.ok", "deleted", n)
	return n, nil
}

// Close releases the database.
func (r *SQLRunRepository) Close() {
	r.db.Close(r.logger)
}

// NopRunRepository discards everything; used when history is disabled.
type NopRunRepository struct{}

func (NopRunRepository) Record(context.Context, *Run) error       { return nil }
func (NopRunRepository) List(context.Context, int) ([]Run, error) { return []Run{}, nil }
func (NopRunRepository) Clear(context.Context) (int64, error)     { return 0, nil }
func (NopRunRepository) Ping(context.Context) error               { return nil }
func (NopRunRepository) Close()                                   {}

// OpenHistory opens, migrates and wraps the configured history database.
// Driver "none" yields a NopRunRepository.
func OpenHistory(ctx context.Context, cfg common.HistoryConfig, logger *slog.Logger) (RunRepository, error) {
	if cfg.Driver == "none" {
		return NopRunRepository{}, nil
	}
	db, err := Open(ctx, ConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: open history: %v", common.ErrDatabase, err)
	}
	if err := RunMigrations(ctx, db.SQL(), db.Dialect()); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("%w: migrate history: %v", common.ErrDatabase, err)
	}
	return NewRunRepository(db, logger), nil
}
