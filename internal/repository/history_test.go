package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func openTestHistory(t *testing.T) RunRepository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "nested", "history.db")
	repo, err := OpenHistory(context.Background(), common.HistoryConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func TestSQLiteHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestHistory(t)
	require.NoError(t, repo.Ping(ctx))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &Run{
		DocumentID: "doc-1", FileName: "a.pdf", MIMEType: "application/pdf", Pages: 2,
		Status: constants.RunStatusOK, Records: 3, DurationMs: 120, CreatedAt: base,
	}
	second := &Run{
		DocumentID: "doc-2", FileName: "b.png", Status: constants.RunStatusFailed,
		Stage: constants.StageExtract, ErrorCode: "SERVICE_UNAVAILABLE", ErrorMessage: "timeout",
		CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))
	assert.NotEmpty(t, first.ID)

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "doc-2", runs[0].DocumentID, "newest first")
	assert.Equal(t, constants.StageExtract, runs[0].Stage)
	assert.Equal(t, "SERVICE_UNAVAILABLE", runs[0].ErrorCode)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 2, runs[1].Pages)
	assert.Equal(t, 3, runs[1].Records)
	assert.True(t, base.Equal(runs[1].CreatedAt))

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err = repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordNilRun(t *testing.T) {
	repo := openTestHistory(t)
	err := repo.Record(context.Background(), nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func newMockRepo(t *testing.T) (*SQLRunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepository(&DB{Driver: entsql.OpenDB(dialect.Postgres, db)}, nil), mock
}

func TestPostgresRecordUsesNumberedPlaceholders(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	run := &Run{
		ID: "11111111-1111-1111-1111-111111111111", DocumentID: "doc-1", FileName: "a.pdf",
		Status: constants.RunStatusPartial, Records: 1, Unnormalized: 1, CreatedAt: created,
	}

	mock.ExpectExec(`INSERT INTO "runs" \("id", "document_id", .*\) VALUES \(\$1, \$2, .*\$14\)`).
		WithArgs(run.ID, "doc-1", "a.pdf", "", "", 0, "PARTIAL", "", "", "", 1, 1, int64(0), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordWrapsDatabaseErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO "runs"`).WillReturnError(errors.New("connection reset"))

	err := repo.Record(context.Background(), &Run{DocumentID: "doc-1", Status: constants.RunStatusOK})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDatabase))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAndClear(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(runColumns).
		AddRow("id-1", "doc-1", "a.pdf", "abc", "application/pdf", 1, "OK", "", "", "", 2, 0, int64(50), created)

	mock.ExpectQuery(`SELECT .* FROM "runs" ORDER BY .created_at. DESC LIMIT 5`).WillReturnRows(rows)
	mock.ExpectExec(`DELETE FROM "runs"`).WillReturnResult(sqlmock.NewResult(0, 7))

	runs, err := repo.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, constants.RunStatusOK, runs[0].Status)
	assert.Equal(t, int64(50), runs[0].DurationMs)

	n, err := repo.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNopRepository(t *testing.T) {
	repo, err := OpenHistory(context.Background(), common.HistoryConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Record(context.Background(), &Run{}))
	require.NoError(t, repo.Ping(context.Background()))
	runs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	repo.Close()
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}
