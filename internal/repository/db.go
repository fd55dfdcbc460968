package repository

import (
	"context"

	"gorm.io/gorm"
)

// conn returns the transaction when the caller runs inside one, the pooled
// connection otherwise.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
