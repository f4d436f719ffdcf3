package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres error code raised when lock_timeout elapses before a row lock
// could be acquired.
const lockNotAvailableCode = "55P03"

// ErrResourceBusy indicates transient lock contention on a ledger row. The
// caller may retry.
var ErrResourceBusy = errors.New("resource busy: could not acquire row lock within timeout")

// RunInTx executes fn inside a single database transaction with a bounded
// wait for row locks. All mutating engine operations go through here so that
// concurrent reservers serialize on the (event, access type) ledger row
// instead of racing on stale availability reads.
func RunInTx(ctx context.Context, db *gorm.DB, lockTimeout time.Duration, fn func(tx *gorm.DB) error) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		return fn(tx)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailableCode {
			return ErrResourceBusy
		}
		return err
	}
	return nil
}
