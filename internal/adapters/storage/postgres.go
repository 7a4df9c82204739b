package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/tx"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchStorageInterface определяет интерфейс журнала партий публикации
type BatchStorageInterface interface {
	SaveBatch(ctx context.Context, result *models.BatchResult) error
	GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error)
	ListBatches(ctx context.Context, filters map[string]interface{}, pagination *pkgutils.Pagination) ([]models.BatchSummary, int, error)
}

type BatchStoragePort interface {
	BatchStorageInterface

	Close() error
}

const schema = `
CREATE SCHEMA IF NOT EXISTS listing;

CREATE TABLE IF NOT EXISTS listing.batches (
	id           TEXT PRIMARY KEY,
	state        TEXT        NOT NULL,
	requested    INTEGER     NOT NULL,
	total        INTEGER     NOT NULL,
	succeeded    INTEGER     NOT NULL,
	failed       INTEGER     NOT NULL,
	cancelled    BOOLEAN     NOT NULL DEFAULT FALSE,
	failure_code TEXT,
	result       JSONB       NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS batches_started_at_idx ON listing.batches (started_at DESC);

CREATE TABLE IF NOT EXISTS listing.outcomes (
	batch_id       TEXT    NOT NULL REFERENCES listing.batches (id) ON DELETE CASCADE,
	idx            INTEGER NOT NULL,
	seller_code    TEXT    NOT NULL,
	title          TEXT    NOT NULL,
	price          BIGINT  NOT NULL,
	succeeded      BOOLEAN NOT NULL,
	remote_id      TEXT,
	failure_code   TEXT,
	failure_reason TEXT,
	recorded_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (batch_id, idx)
);

CREATE INDEX IF NOT EXISTS outcomes_seller_code_idx ON listing.outcomes (seller_code);
`

// BatchStorage журнал партий публикации в PostgreSQL
type BatchStorage struct {
	pool      *pgxpool.Pool
	txManager tx.TxManager
}

// NewPostgresStorage создает новый экземпляр BatchStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*BatchStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return NewPostgresStorageWithPool(ctx, pool)
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*BatchStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &BatchStorage{
		pool:      pool,
		txManager: tx.NewTxManager(pool),
	}, nil
}

// Migrate создает схему журнала, если ее еще нет
func (r *BatchStorage) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate batch ledger: %w", err)
	}
	return nil
}

// Close закрывает соединение с БД
func (r *BatchStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *BatchStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return r.pool
}

// SaveBatch сохраняет итог партии и результаты карточек в одной транзакции
func (r *BatchStorage) SaveBatch(ctx context.Context, result *models.BatchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode batch result: %w", err)
	}

	return r.txManager.Do(ctx, func(ctx context.Context) error {
		e := r.getExecutor(ctx)

		query := `
			INSERT INTO listing.batches (id, state, requested, total, succeeded, failed, cancelled, failure_code, result, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
			ON CONFLICT (id)
			DO UPDATE SET
				state = $2,
				total = $4,
				succeeded = $5,
				failed = $6,
				cancelled = $7,
				failure_code = NULLIF($8, ''),
				result = $9,
				finished_at = $11
		`
		var finishedAt *time.Time
		if !result.FinishedAt.IsZero() {
			finishedAt = &result.FinishedAt
		}

		_, err := e.Exec(ctx, query, result.ID, string(result.State), result.Requested, result.Total,
			result.Succeeded, result.Failed, result.Cancelled, string(result.FailureCode), payload,
			result.StartedAt, finishedAt)
		if err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}

		outcomeQuery := `
			INSERT INTO listing.outcomes (batch_id, idx, seller_code, title, price, succeeded, remote_id, failure_code, failure_reason, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)
			ON CONFLICT (batch_id, idx) DO NOTHING
		`
		now := time.Now().UTC()
		for _, o := range result.Outcomes() {
			_, err := e.Exec(ctx, outcomeQuery, result.ID, o.Index, o.SellerCode, o.Title, o.Price,
				o.Succeeded, o.RemoteID, string(o.FailureCode), o.FailureReason, now)
			if err != nil {
				return fmt.Errorf("failed to save outcome %d: %w", o.Index, err)
			}
		}

		return nil
	})
}

// GetBatch получает итог партии по ID
func (r *BatchStorage) GetBatch(ctx context.Context, batchID string) (*models.BatchResult, error) {
	e := r.getExecutor(ctx)

	query := `
		SELECT result
		FROM listing.batches
		WHERE id = $1
	`

	var payload []byte
	if err := e.QueryRow(ctx, query, batchID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	var result models.BatchResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode batch result: %w", err)
	}
	return &result, nil
}

// ListBatches возвращает список партий с поддержкой пагинации и фильтрации
func (r *BatchStorage) ListBatches(ctx context.Context, filters map[string]interface{}, pagination *pkgutils.Pagination) ([]models.BatchSummary, int, error) {
	conditions, args := buildFilterConditions(filters)

	baseQuery := " FROM listing.batches"
	if where := genFilterConditions(conditions); where != "" {
		baseQuery += " WHERE " + where
	}

	e := r.getExecutor(ctx)

	var total int
	if err := e.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count batches: %w", err)
	}
	if total == 0 {
		return []models.BatchSummary{}, 0, nil
	}

	argPos := len(args) + 1
	args = append(args, pagination.GetLimit(), pagination.GetOffset())
	dataQuery := `
		SELECT id, state, requested, total, succeeded, failed, cancelled, started_at, finished_at
	` + baseQuery + `
		ORDER BY ` + batchOrderClause(pagination) + `
		LIMIT $` + fmt.Sprint(argPos) + ` OFFSET $` + fmt.Sprint(argPos+1)

	rows, err := e.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]models.BatchSummary, 0, pagination.GetLimit())
	for rows.Next() {
		var (
			s          models.BatchSummary
			state      string
			finishedAt *time.Time
		)
		if err := rows.Scan(&s.ID, &state, &s.Requested, &s.Total, &s.Succeeded, &s.Failed,
			&s.Cancelled, &s.StartedAt, &finishedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan batch row: %w", err)
		}
		s.State = models.BatchState(state)
		if finishedAt != nil {
			s.FinishedAt = *finishedAt
		}
		batches = append(batches, s)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("error while iterating batch rows: %w", rows.Err())
	}

	return batches, total, nil
}

// batchOrderClause выражение ORDER BY для журнала партий.
// При сортировке по finished_at незавершенные партии идут последними.
func batchOrderClause(pagination *pkgutils.Pagination) string {
	order := pagination.GetSortOrder(models.BatchSortStartedAt, models.BatchSortFields...)
	if pagination.SortBy == models.BatchSortFinishedAt {
		order += " NULLS LAST"
	}
	return order + ", id"
}

// buildFilterConditions строит условия WHERE из фильтров BatchFilter.ToMap
func buildFilterConditions(filters map[string]interface{}) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if v, ok := filters["state"].(string); ok {
		add("state = $%d", v)
	}
	if v, ok := filters["states"].([]string); ok && len(v) > 0 {
		add("state = ANY($%d)", v)
	}
	if v, ok := filters["cancelled"].(bool); ok {
		add("cancelled = $%d", v)
	}
	if v, ok := filters["started_after"].(time.Time); ok {
		add("started_at >= $%d", v)
	}
	if v, ok := filters["started_before"].(time.Time); ok {
		add("started_at < $%d", v)
	}
	if v, ok := filters["with_failures"].(bool); ok && v {
		conditions = append(conditions, "failed > 0")
	}

	return conditions, args
}

func genFilterConditions(conditions []string) string {
	return strings.Join(conditions, " AND ")
}
