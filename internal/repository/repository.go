package repository

import "github.com/jmoiron/sqlx"

// executor returns the caller's transaction when one is supplied, falling back to the pool.
func executor(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}
