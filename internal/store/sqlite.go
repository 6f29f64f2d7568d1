package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bvsbharat/claimspilot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS claims (
	claim_id                TEXT PRIMARY KEY,
	source_filename         TEXT NOT NULL DEFAULT '',
	source                  TEXT NOT NULL DEFAULT '',
	status                  TEXT NOT NULL,
	extracted_data          TEXT,
	raw_text                TEXT NOT NULL DEFAULT '',
	severity_score          INTEGER,
	complexity_score        INTEGER,
	fraud_flags             TEXT,
	routing_decision        TEXT,
	task_id                 TEXT NOT NULL DEFAULT '',
	processing_time_seconds REAL NOT NULL DEFAULT 0,
	created_at              INTEGER NOT NULL,
	updated_at              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_transitions (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id TEXT NOT NULL,
	status   TEXT NOT NULL,
	message  TEXT NOT NULL DEFAULT '',
	at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS adjusters (
	adjuster_id           TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	email                 TEXT NOT NULL DEFAULT '',
	phone                 TEXT NOT NULL DEFAULT '',
	specializations       TEXT,
	experience_level      TEXT NOT NULL DEFAULT '',
	years_experience      INTEGER NOT NULL DEFAULT 0,
	max_claim_amount      REAL NOT NULL DEFAULT 0,
	max_concurrent_claims INTEGER NOT NULL DEFAULT 0,
	current_workload      INTEGER NOT NULL DEFAULT 0,
	territories           TEXT,
	available             INTEGER NOT NULL DEFAULT 1,
	created_at            INTEGER NOT NULL,
	updated_at            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	task_id     TEXT PRIMARY KEY,
	claim_id    TEXT NOT NULL,
	adjuster_id TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_transitions_claim ON claim_transitions(claim_id);
CREATE INDEX IF NOT EXISTS idx_tasks_claim ON tasks(claim_id);
`

// SQLiteStore persists the engine's state in a single SQLite file. The
// routing commit runs in one transaction so the workload guard and the
// claim update cannot diverge.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. busy_timeout keeps concurrent routing commits queueing
// instead of failing under writer contention.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func marshalJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalJSON(ns sql.NullString, dst interface{}) error {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), dst)
}

func (s *SQLiteStore) SaveClaim(ctx context.Context, claim *model.Claim) error {
	claim.UpdatedAt = time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = claim.UpdatedAt
	}
	extracted, err := marshalJSON(claim.ExtractedData)
	if err != nil {
		return fmt.Errorf("marshal extracted data: %w", err)
	}
	flags, err := marshalJSON(claim.FraudFlags)
	if err != nil {
		return fmt.Errorf("marshal fraud flags: %w", err)
	}
	decision, err := marshalJSON(claim.RoutingDecision)
	if err != nil {
		return fmt.Errorf("marshal routing decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (claim_id, source_filename, source, status, extracted_data, raw_text,
			severity_score, complexity_score, fraud_flags, routing_decision, task_id,
			processing_time_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			source_filename = excluded.source_filename,
			source = excluded.source,
			status = excluded.status,
			extracted_data = excluded.extracted_data,
			raw_text = excluded.raw_text,
			severity_score = excluded.severity_score,
			complexity_score = excluded.complexity_score,
			fraud_flags = excluded.fraud_flags,
			routing_decision = excluded.routing_decision,
			task_id = excluded.task_id,
			processing_time_seconds = excluded.processing_time_seconds,
			updated_at = excluded.updated_at`,
		claim.ClaimID, claim.SourceFilename, claim.Source, string(claim.Status), extracted, claim.RawText,
		nullableInt(claim.SeverityScore), nullableInt(claim.ComplexityScore), flags, decision, claim.TaskID,
		claim.ProcessingTimeSeconds, claim.CreatedAt.Unix(), claim.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save claim %s: %w", claim.ClaimID, err)
	}
	return nil
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

const claimColumns = `claim_id, source_filename, source, status, extracted_data, raw_text,
	severity_score, complexity_score, fraud_flags, routing_decision, task_id,
	processing_time_seconds, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*model.Claim, error) {
	var (
		claim                      model.Claim
		status                     string
		extracted, flags, decision sql.NullString
		severity, complexity       sql.NullInt64
		createdAt, updatedAt       int64
	)
	err := row.Scan(&claim.ClaimID, &claim.SourceFilename, &claim.Source, &status, &extracted, &claim.RawText,
		&severity, &complexity, &flags, &decision, &claim.TaskID,
		&claim.ProcessingTimeSeconds, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	claim.Status = model.Status(status)
	if severity.Valid {
		v := int(severity.Int64)
		claim.SeverityScore = &v
	}
	if complexity.Valid {
		v := int(complexity.Int64)
		claim.ComplexityScore = &v
	}
	if err := unmarshalJSON(extracted, &claim.ExtractedData); err != nil {
		return nil, fmt.Errorf("decode extracted data: %w", err)
	}
	if err := unmarshalJSON(flags, &claim.FraudFlags); err != nil {
		return nil, fmt.Errorf("decode fraud flags: %w", err)
	}
	if err := unmarshalJSON(decision, &claim.RoutingDecision); err != nil {
		return nil, fmt.Errorf("decode routing decision: %w", err)
	}
	claim.CreatedAt = time.Unix(createdAt, 0).UTC()
	claim.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &claim, nil
}

func (s *SQLiteStore) GetClaim(ctx context.Context, claimID string) (*model.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE claim_id = ?`, claimID)
	return scanClaim(row)
}

func (s *SQLiteStore) GetClaimByFilename(ctx context.Context, filename string) (*model.Claim, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE source_filename = ? ORDER BY created_at DESC LIMIT 1`, filename)
	return scanClaim(row)
}

func (s *SQLiteStore) ListClaims(ctx context.Context, statuses ...model.Status) ([]model.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	var args []interface{}
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + repeat(",?", len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY claim_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *claim)
	}
	return out, rows.Err()
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func (s *SQLiteStore) UpdateClaimStatus(ctx context.Context, claimID string, status model.Status, message string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateStatusTx(ctx, tx, claimID, status, message); err != nil {
		return err
	}
	return tx.Commit()
}

func updateStatusTx(ctx context.Context, tx *sql.Tx, claimID string, status model.Status, message string) error {
	now := time.Now()
	res, err := tx.ExecContext(ctx, `UPDATE claims SET status = ?, updated_at = ? WHERE claim_id = ?`,
		string(status), now.Unix(), claimID)
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO claim_transitions (claim_id, status, message, at) VALUES (?, ?, ?, ?)`,
		claimID, string(status), message, now.Unix())
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, claimID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim_id, status, message, at FROM claim_transitions WHERE claim_id = ? ORDER BY id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var status string
		if err := rows.Scan(&t.ClaimID, &status, &t.Message, &t.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Status = model.Status(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveAdjuster(ctx context.Context, adjuster *model.Adjuster) error {
	adjuster.UpdatedAt = time.Now().UTC()
	if adjuster.CreatedAt.IsZero() {
		adjuster.CreatedAt = adjuster.UpdatedAt
	}
	specs, err := marshalJSON(adjuster.Specializations)
	if err != nil {
		return fmt.Errorf("marshal specializations: %w", err)
	}
	territories, err := marshalJSON(adjuster.Territories)
	if err != nil {
		return fmt.Errorf("marshal territories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO adjusters (adjuster_id, name, email, phone, specializations, experience_level,
			years_experience, max_claim_amount, max_concurrent_claims, current_workload,
			territories, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(adjuster_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			specializations = excluded.specializations,
			experience_level = excluded.experience_level,
			years_experience = excluded.years_experience,
			max_claim_amount = excluded.max_claim_amount,
			max_concurrent_claims = excluded.max_concurrent_claims,
			current_workload = excluded.current_workload,
			territories = excluded.territories,
			available = excluded.available,
			updated_at = excluded.updated_at`,
		adjuster.AdjusterID, adjuster.Name, adjuster.Email, adjuster.Phone, specs, string(adjuster.ExperienceLevel),
		adjuster.YearsExperience, adjuster.MaxClaimAmount, adjuster.MaxConcurrentClaims, adjuster.CurrentWorkload,
		territories, boolInt(adjuster.Available), adjuster.CreatedAt.Unix(), adjuster.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save adjuster %s: %w", adjuster.AdjusterID, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const adjusterColumns = `adjuster_id, name, email, phone, specializations, experience_level,
	years_experience, max_claim_amount, max_concurrent_claims, current_workload,
	territories, available, created_at, updated_at`

func scanAdjuster(row rowScanner) (*model.Adjuster, error) {
	var (
		adjuster             model.Adjuster
		level                string
		specs, territories   sql.NullString
		available            int
		createdAt, updatedAt int64
	)
	err := row.Scan(&adjuster.AdjusterID, &adjuster.Name, &adjuster.Email, &adjuster.Phone, &specs, &level,
		&adjuster.YearsExperience, &adjuster.MaxClaimAmount, &adjuster.MaxConcurrentClaims, &adjuster.CurrentWorkload,
		&territories, &available, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan adjuster: %w", err)
	}
	adjuster.ExperienceLevel = model.ExperienceLevel(level)
	adjuster.Available = available != 0
	if err := unmarshalJSON(specs, &adjuster.Specializations); err != nil {
		return nil, fmt.Errorf("decode specializations: %w", err)
	}
	if err := unmarshalJSON(territories, &adjuster.Territories); err != nil {
		return nil, fmt.Errorf("decode territories: %w", err)
	}
	adjuster.CreatedAt = time.Unix(createdAt, 0).UTC()
	adjuster.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &adjuster, nil
}

func (s *SQLiteStore) GetAdjuster(ctx context.Context, adjusterID string) (*model.Adjuster, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adjusterColumns+` FROM adjusters WHERE adjuster_id = ?`, adjusterID)
	return scanAdjuster(row)
}

func (s *SQLiteStore) ListAdjusters(ctx context.Context, availableOnly bool) ([]model.Adjuster, error) {
	query := `SELECT ` + adjusterColumns + ` FROM adjusters`
	if availableOnly {
		query += ` WHERE available = 1`
	}
	query += ` ORDER BY adjuster_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list adjusters: %w", err)
	}
	defer rows.Close()

	var out []model.Adjuster
	for rows.Next() {
		adjuster, err := scanAdjuster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *adjuster)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CommitRouting(ctx context.Context, claimID string, decision *model.RoutingDecision, status model.Status, message string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if needsIncrement(decision) {
		// Guarded increment. Zero rows means the adjuster filled up (or
		// went unavailable) since the routing snapshot was taken.
		res, err := tx.ExecContext(ctx, `
			UPDATE adjusters
			SET current_workload = current_workload + 1, updated_at = ?
			WHERE adjuster_id = ? AND available = 1 AND current_workload < max_concurrent_claims`,
			time.Now().Unix(), decision.AdjusterID)
		if err != nil {
			return fmt.Errorf("increment workload: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrWorkloadRace
		}
	}

	decisionJSON, err := marshalJSON(decision)
	if err != nil {
		return fmt.Errorf("marshal routing decision: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE claims SET routing_decision = ?, status = ?, updated_at = ? WHERE claim_id = ?`,
		decisionJSON, string(status), time.Now().Unix(), claimID)
	if err != nil {
		return fmt.Errorf("write routing decision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO claim_transitions (claim_id, status, message, at) VALUES (?, ?, ?, ?)`,
		claimID, string(status), message, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ReleaseAssignment(ctx context.Context, adjusterID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE adjusters
		SET current_workload = current_workload - 1, updated_at = ?
		WHERE adjuster_id = ? AND current_workload > 0`,
		time.Now().Unix(), adjusterID)
	if err != nil {
		return fmt.Errorf("release assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown adjuster or already at zero; only the former is an error.
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM adjusters WHERE adjuster_id = ?`, adjusterID).Scan(&exists); err != nil {
			return fmt.Errorf("release assignment: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTask(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = task.UpdatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, claim_id, adjuster_id, title, description, priority, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			claim_id = excluded.claim_id,
			adjuster_id = excluded.adjuster_id,
			title = excluded.title,
			description = excluded.description,
			priority = excluded.priority,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		task.TaskID, task.ClaimID, task.AdjusterID, task.Title, task.Description,
		string(task.Priority), string(task.Status), task.CreatedAt.Unix(), task.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.TaskID, err)
	}
	return nil
}

const taskColumns = `task_id, claim_id, adjuster_id, title, description, priority, status, created_at, updated_at`

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task                 model.Task
		priority, status     string
		createdAt, updatedAt int64
	)
	err := row.Scan(&task.TaskID, &task.ClaimID, &task.AdjusterID, &task.Title, &task.Description,
		&priority, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Priority = model.Priority(priority)
	task.Status = model.TaskStatus(status)
	task.CreatedAt = time.Unix(createdAt, 0).UTC()
	task.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &task, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	return scanTask(row)
}

func (s *SQLiteStore) GetTaskByClaim(ctx context.Context, claimID string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE claim_id = ? ORDER BY created_at DESC LIMIT 1`, claimID)
	return scanTask(row)
}

func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = ? WHERE task_id = ?`,
		string(status), time.Now().Unix(), taskID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
