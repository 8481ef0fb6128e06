package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresHost is an LMS data model stored in the cmi_values table, one row
// per registration and element. Writes are staged in memory and flushed in
// a single transaction on Commit.
type PostgresHost struct {
	pool           *pgxpool.Pool
	registrationID string

	mu          sync.Mutex
	values      map[string]string
	dirty       map[string]bool
	initialized bool
	finished    bool
	lastErr     ErrorCode
}

// NewPostgresHost creates a host for one registration.
func NewPostgresHost(pool *pgxpool.Pool, registrationID string) *PostgresHost {
	return &PostgresHost{
		pool:           pool,
		registrationID: registrationID,
		values:         make(map[string]string),
		dirty:          make(map[string]bool),
		lastErr:        CodeNoError,
	}
}

// Initialize loads the registration's committed values.
func (h *PostgresHost) Initialize() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool == nil || h.registrationID == "" {
		h.lastErr = CodeGeneral
		return false
	}
	if h.initialized && !h.finished {
		h.lastErr = CodeGeneral
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := h.pool.Query(ctx,
		`SELECT element, value FROM cmi_values WHERE registration_id = $1`,
		h.registrationID,
	)
	if err != nil {
		slog.Warn("load cmi values failed", "registration_id", h.registrationID, "error", err)
		h.lastErr = CodeGeneral
		return false
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([2]string, error) {
		var kv [2]string
		err := row.Scan(&kv[0], &kv[1])
		return kv, err
	})
	if err != nil {
		slog.Warn("scan cmi values failed", "registration_id", h.registrationID, "error", err)
		h.lastErr = CodeGeneral
		return false
	}

	h.values = make(map[string]string, len(values))
	h.dirty = make(map[string]bool)
	for _, kv := range values {
		h.values[kv[0]] = kv[1]
	}
	h.initialized = true
	h.finished = false
	h.lastErr = CodeNoError
	return true
}

func (h *PostgresHost) GetValue(element string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return ""
	}
	h.lastErr = CodeNoError
	return h.values[element]
}

func (h *PostgresHost) SetValue(element, value string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	if code := checkValue(element, value); code != CodeNoError {
		h.lastErr = code
		return false
	}
	h.values[element] = value
	h.dirty[element] = true
	h.lastErr = CodeNoError
	return true
}

func (h *PostgresHost) Commit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	return h.flushLocked()
}

func (h *PostgresHost) Finish() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	if !h.flushLocked() {
		return false
	}
	h.finished = true
	return true
}

func (h *PostgresHost) GetLastError() ErrorCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *PostgresHost) active() bool {
	if !h.initialized || h.finished {
		h.lastErr = CodeNotInitialized
		return false
	}
	return true
}

func (h *PostgresHost) flushLocked() bool {
	if len(h.dirty) == 0 {
		h.lastErr = CodeNoError
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := h.flush(ctx); err != nil {
		slog.Warn("commit cmi values failed", "registration_id", h.registrationID, "error", err)
		h.lastErr = CodeGeneral
		return false
	}
	h.dirty = make(map[string]bool)
	h.lastErr = CodeNoError
	return true
}

func (h *PostgresHost) flush(ctx context.Context) error {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for element := range h.dirty {
		batch.Queue(
			`INSERT INTO cmi_values (registration_id, element, value, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (registration_id, element)
			 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			h.registrationID, element, h.values[element],
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
