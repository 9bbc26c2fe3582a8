package postgres

import (
	"context"
	"database/sql"
	"hash/fnv"
)

// lockKey converts a lock name to the 64-bit key PostgreSQL advisory locks
// take. FNV-1a over a fixed prefix keeps values stable across builds.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("latchkey:lock:" + name))
	return int64(h.Sum64())
}

// acquireTxLock takes a transaction-scoped advisory lock. It blocks until
// the lock is granted; PostgreSQL releases it at commit or rollback, so
// there is no release path to get wrong.
func acquireTxLock(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(name))
	return err
}
