package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// Pool abstracts the pgx connection pool so tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	context    JSONB NOT NULL,
	query      TEXT NOT NULL DEFAULT '',
	strategy   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	leads      INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_leads (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL REFERENCES jobs(id),
	lead_number INTEGER NOT NULL,
	lead        JSONB NOT NULL,
	profile     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS performance_records (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	leads_found  INTEGER NOT NULL DEFAULT 0,
	avg_quality  DOUBLE PRECISION NOT NULL DEFAULT 0,
	success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_job_leads_job_id ON job_leads(job_id);
CREATE INDEX IF NOT EXISTS idx_perf_strategy ON performance_records(strategy);
CREATE INDEX IF NOT EXISTS idx_perf_category ON performance_records(category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, userID string, bc model.BusinessContext) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	ctxJSON, err := json.Marshal(bc)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal context")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, user_id, context, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, ctxJSON, string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:        id,
		UserID:    userID,
		Context:   bc,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: job %s not found", jobID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobQuery(ctx context.Context, jobID string, query string, strategy model.Strategy) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET query = $1, strategy = $2, updated_at = $3 WHERE id = $4`,
		query, string(strategy), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job query %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: job %s not found", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, leads int, errMsg string) error {
	status := model.JobStatusComplete
	if errMsg != "" {
		status = model.JobStatusFailed
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, leads = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), leads, errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: job %s not found", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, context, query, strategy, status, leads, error, created_at, updated_at FROM jobs WHERE id = $1`,
		jobID,
	)
	job, err := scanPgJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
		}
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, user_id, context, query, strategy, status, leads, error, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: iterate jobs")
}

func (s *PostgresStore) SaveLead(ctx context.Context, jobID string, leadNumber int, lead model.Lead, profile *model.LeadProfile) error {
	leadJSON, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}

	var profileJSON []byte
	if profile != nil {
		profileJSON, err = json.Marshal(profile)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal profile")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_leads (id, job_id, lead_number, lead, profile, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), jobID, leadNumber, leadJSON, profileJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert lead for job %s", jobID)
}

func (s *PostgresStore) ListLeads(ctx context.Context, jobID string) ([]JobLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lead_number, lead, profile FROM job_leads WHERE job_id = $1 ORDER BY lead_number`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list leads for job %s", jobID)
	}
	defer rows.Close()

	var leads []JobLead
	for rows.Next() {
		var (
			jl          JobLead
			leadJSON    []byte
			profileJSON []byte
		)
		if err := rows.Scan(&jl.LeadNumber, &leadJSON, &profileJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if err := json.Unmarshal(leadJSON, &jl.Lead); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		if len(profileJSON) > 0 {
			jl.Profile = &model.LeadProfile{}
			if err := json.Unmarshal(profileJSON, jl.Profile); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal profile")
			}
		}
		leads = append(leads, jl)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) SavePerformanceRecord(ctx context.Context, rec model.PerformanceRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO performance_records (id, query, strategy, category, leads_found, avg_quality, success_rate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, rec.Query, string(rec.Strategy), string(rec.Category),
		rec.LeadsFound, rec.AvgQuality, rec.SuccessRate, createdAt,
	)
	return eris.Wrap(err, "postgres: insert performance record")
}

func (s *PostgresStore) ListPerformanceRecords(ctx context.Context) ([]model.PerformanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, strategy, category, leads_found, avg_quality, success_rate, created_at
		 FROM performance_records ORDER BY created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list performance records")
	}
	defer rows.Close()

	var recs []model.PerformanceRecord
	for rows.Next() {
		var (
			rec      model.PerformanceRecord
			strategy string
			category string
		)
		if err := rows.Scan(&rec.ID, &rec.Query, &strategy, &category,
			&rec.LeadsFound, &rec.AvgQuality, &rec.SuccessRate, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan performance record")
		}
		rec.Strategy = model.Strategy(strategy)
		rec.Category = model.Category(category)
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate performance records")
}

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var (
		job      model.Job
		ctxJSON  []byte
		strategy string
		status   string
	)
	if err := row.Scan(&job.ID, &job.UserID, &ctxJSON, &job.Query, &strategy,
		&status, &job.Leads, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan job")
	}
	if err := json.Unmarshal(ctxJSON, &job.Context); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal context")
	}
	job.Strategy = model.Strategy(strategy)
	job.Status = model.JobStatus(status)
	return &job, nil
}
