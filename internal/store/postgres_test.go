package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresCreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := s.CreateJob(context.Background(), "user-1", model.BusinessContext{Description: "d"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJobNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, context, query, strategy, status, leads, error, created_at, updated_at FROM jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetJob(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get job")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ctxJSON, _ := json.Marshal(model.BusinessContext{Description: "AI consulting"})
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, user_id, context, .* FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "context", "query", "strategy", "status", "leads", "error", "created_at", "updated_at",
		}).AddRow("job-1", "user-1", ctxJSON, "q", "buying_intent", "complete", 3, "", now, now))

	job, err := s.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "AI consulting", job.Context.Description)
	assert.Equal(t, model.StrategyBuyingIntent, job.Strategy)
	assert.Equal(t, model.JobStatusComplete, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateJobStatusNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status`).
		WithArgs("running", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateJobStatus(context.Background(), "missing", model.JobStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSavePerformanceRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO performance_records`).
		WithArgs(pgxmock.AnyArg(), "q1", "buying_intent", "ai_technology", 15, 0.8, 0.9, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SavePerformanceRecord(context.Background(), model.PerformanceRecord{
		Query:       "q1",
		Strategy:    model.StrategyBuyingIntent,
		Category:    model.CategoryAITechnology,
		LeadsFound:  15,
		AvgQuality:  0.8,
		SuccessRate: 0.9,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListPerformanceRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, query, strategy, category, leads_found, avg_quality, success_rate, created_at`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "query", "strategy", "category", "leads_found", "avg_quality", "success_rate", "created_at",
		}).
			AddRow("r1", "q1", "buying_intent", "ai_technology", 15, 0.8, 0.9, now).
			AddRow("r2", "q2", "problem_seeking", "", 8, 0.5, 0.6, now))

	recs, err := s.ListPerformanceRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.StrategyBuyingIntent, recs[0].Strategy)
	assert.Equal(t, 8, recs[1].LeadsFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
