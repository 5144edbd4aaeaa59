package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	context    TEXT NOT NULL,
	query      TEXT NOT NULL DEFAULT '',
	strategy   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	leads      INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_leads (
	id          TEXT PRIMARY KEY,
	job_id      TEXT NOT NULL REFERENCES jobs(id),
	lead_number INTEGER NOT NULL,
	lead        TEXT NOT NULL,
	profile     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS performance_records (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	leads_found  INTEGER NOT NULL DEFAULT 0,
	avg_quality  REAL NOT NULL DEFAULT 0,
	success_rate REAL NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_job_leads_job_id ON job_leads(job_id);
CREATE INDEX IF NOT EXISTS idx_perf_strategy ON performance_records(strategy);
CREATE INDEX IF NOT EXISTS idx_perf_category ON performance_records(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, userID string, bc model.BusinessContext) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	ctxJSON, err := json.Marshal(bc)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal context")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, context, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, string(ctxJSON), string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateJobQuery(ctx context.Context, jobID string, query string, strategy model.Strategy) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET query = ?, strategy = ?, updated_at = ? WHERE id = ?`,
		query, string(strategy), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job query %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, leads int, errMsg string) error {
	status := model.JobStatusComplete
	if errMsg != "" {
		status = model.JobStatusFailed
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, leads = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), leads, errMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, context, query, strategy, status, leads, error, created_at, updated_at FROM jobs WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, user_id, context, query, strategy, status, leads, error, created_at, updated_at FROM jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: iterate jobs")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, jobID string, leadNumber int, lead model.Lead, profile *model.LeadProfile) error {
	leadJSON, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}

	var profileJSON sql.NullString
	if profile != nil {
		raw, err := json.Marshal(profile)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal profile")
		}
		profileJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_leads (id, job_id, lead_number, lead, profile, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), jobID, leadNumber, string(leadJSON), profileJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert lead for job %s", jobID)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, jobID string) ([]JobLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lead_number, lead, profile FROM job_leads WHERE job_id = ? ORDER BY lead_number`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list leads for job %s", jobID)
	}
	defer rows.Close()

	var leads []JobLead
	for rows.Next() {
		var (
			jl          JobLead
			leadJSON    string
			profileJSON sql.NullString
		)
		if err := rows.Scan(&jl.LeadNumber, &leadJSON, &profileJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		if err := json.Unmarshal([]byte(leadJSON), &jl.Lead); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		if profileJSON.Valid {
			jl.Profile = &model.LeadProfile{}
			if err := json.Unmarshal([]byte(profileJSON.String), jl.Profile); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal profile")
			}
		}
		leads = append(leads, jl)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) SavePerformanceRecord(ctx context.Context, rec model.PerformanceRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO performance_records (id, query, strategy, category, leads_found, avg_quality, success_rate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Query, string(rec.Strategy), string(rec.Category),
		rec.LeadsFound, rec.AvgQuality, rec.SuccessRate, createdAt,
	)
	return eris.Wrap(err, "sqlite: insert performance record")
}

func (s *SQLiteStore) ListPerformanceRecords(ctx context.Context) ([]model.PerformanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, strategy, category, leads_found, avg_quality, success_rate, created_at
		 FROM performance_records ORDER BY created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list performance records")
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
			return nil, eris.Wrap(err, "sqlite: scan performance record")
		}
		rec.Strategy = model.Strategy(strategy)
		rec.Category = model.Category(category)
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate performance records")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job      model.Job
		ctxJSON  string
		strategy string
		status   string
	)
	if err := row.Scan(&job.ID, &job.UserID, &ctxJSON, &job.Query, &strategy,
		&status, &job.Leads, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(err, "sqlite: job not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan job")
	}
	if err := json.Unmarshal([]byte(ctxJSON), &job.Context); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal context")
	}
	job.Strategy = model.Strategy(strategy)
	job.Status = model.JobStatus(status)
	return &job, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
