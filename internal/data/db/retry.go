package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/pkg/httpx"
)

const (
	txAttempts = 3
	txBackoff  = 20 * time.Millisecond
)

// Transact runs fn in a transaction on dbc.Tx, or on fallback when dbc has
// none. A transaction of its own that fails with IsRetryable is rolled back
// and run again, up to three attempts. Nested in a caller's transaction, fn
// runs once and the caller decides.
func Transact(dbc dbctx.Context, fallback *gorm.DB, fn func(inner dbctx.Context) error) error {
	attempts := txAttempts
	if dbc.Tx != nil {
		attempts = 1
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(httpx.Backoff(txBackoff, attempt-1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
		err = dbc.DB(fallback).Transaction(func(txx *gorm.DB) error {
			return fn(dbc.WithTx(txx))
		})
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
