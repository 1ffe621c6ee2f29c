package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/gymclub/internal/observability"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrDuplicate indicates a unique constraint violation (member email).
	ErrDuplicate = errors.New("duplicate")

	// ErrWriteConflict is returned when a read-modify-write cycle kept losing
	// to concurrent writers and the retry budget ran out.
	ErrWriteConflict = errors.New("write conflict: row changed concurrently")
)

// Store labels used in metrics.
const (
	storeGym  = "gym"
	storeChat = "chat"
)

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// observe records one repository call on m and returns err unchanged.
func observe(m *observability.Metrics, store, op string, start time.Time, err error) error {
	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = observability.OutcomeNotFound
	default:
		outcome = observability.OutcomeError
	}
	m.Observe(store, op, outcome, time.Since(start))
	return err
}

// conflict records a lost optimistic update and logs it on the context logger.
func conflict(ctx context.Context, m *observability.Metrics, table string, id, revision int64, attempt int) {
	m.Conflict(table)
	zerolog.Ctx(ctx).Debug().
		Str("table", table).
		Int64("id", id).
		Int64("revision", revision).
		Int("attempt", attempt).
		Msg("optimistic update lost, retrying")
}

// beforeUpdate runs between the read and the conditional write of every
// read-modify-write cycle. Tests replace it to interleave a competing writer.
var beforeUpdate = func(table string, id int64) {}
