package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/metamigrate/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Ограничения выборки списка.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// pgUniqueViolation — SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// DeploymentRepo — журнал деплоев.
type DeploymentRepo struct {
	pool *pgxpool.Pool
}

// NewDeploymentRepo создаёт DeploymentRepo.
func NewDeploymentRepo(pool *pgxpool.Pool) *DeploymentRepo {
	return &DeploymentRepo{pool: pool}
}

// EnsureSchema создаёт таблицу deployments, если её нет.
func (r *DeploymentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create сохраняет запись о деплое.
// Повторная запись с тем же ID возвращает ErrAlreadyExists.
func (r *DeploymentRepo) Create(ctx context.Context, rec *domain.DeploymentRecord) error {
	selection := rec.Selection
	if selection == nil {
		selection = domain.SelectionSet{}
	}
	selectionJSON, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	query := `
		INSERT INTO deployments (id, session_id, job_id, source_env, target_env, selection,
		                         success, status, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		nullUUID(rec.SessionID),
		nullString(rec.JobID),
		rec.Source,
		rec.Target,
		selectionJSON,
		rec.Success,
		nullString(rec.Status),
		nullString(rec.Error),
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: deployment %s", ErrAlreadyExists, rec.ID)
		}
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

const selectDeployment = `
	SELECT id, session_id, job_id, source_env, target_env, selection,
	       success, status, error, started_at, finished_at
	FROM deployments
`

// GetByID возвращает запись по ID.
func (r *DeploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeploymentRecord, error) {
	return scanDeployment(r.pool.QueryRow(ctx, selectDeployment+" WHERE id = $1", id))
}

// DeploymentFilter — параметры выборки журнала.
type DeploymentFilter struct {
	SessionID *uuid.UUID
	Target    string
	Limit     int
	Offset    int
}

// Normalize приводит Limit и Offset к допустимым значениям.
func (f DeploymentFilter) Normalize() DeploymentFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// List возвращает записи, новые первыми.
func (r *DeploymentRepo) List(ctx context.Context, filter DeploymentFilter) ([]domain.DeploymentRecord, error) {
	filter = filter.Normalize()

	query := selectDeployment + `
		WHERE ($1::uuid IS NULL OR session_id = $1)
		  AND ($2::text IS NULL OR target_env = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4
	`
	var sessionID *uuid.UUID
	if filter.SessionID != nil {
		sessionID = nullUUID(*filter.SessionID)
	}

	rows, err := r.pool.Query(ctx, query,
		sessionID,
		nullString(filter.Target),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	records := []domain.DeploymentRecord{}
	for rows.Next() {
		rec, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// --- Helpers ---

// scanDeployment сканирует строку (pgx.Row или pgx.Rows) в DeploymentRecord.
func scanDeployment(row pgx.Row) (*domain.DeploymentRecord, error) {
	var rec domain.DeploymentRecord
	var sessionID *uuid.UUID
	var jobID, status, recError *string
	var selectionJSON []byte

	err := row.Scan(
		&rec.ID,
		&sessionID,
		&jobID,
		&rec.Source,
		&rec.Target,
		&selectionJSON,
		&rec.Success,
		&status,
		&recError,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}

	if sessionID != nil {
		rec.SessionID = *sessionID
	}
	rec.JobID = deref(jobID)
	rec.Status = deref(status)
	rec.Error = deref(recError)

	rec.Selection = domain.SelectionSet{}
	if len(selectionJSON) > 0 {
		if err := json.Unmarshal(selectionJSON, &rec.Selection); err != nil {
			return nil, fmt.Errorf("unmarshal selection: %w", err)
		}
	}

	return &rec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для uuid.Nil.
func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
