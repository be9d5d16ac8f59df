// Package repository contains all PostgreSQL data access for the trading
// core. Every repository takes an explicit *sqlx.Tx for mutations so that a
// whole unit of work commits or rolls back together.
package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/predikto/tradecore/internal/domain"
)

// Store wraps the database handle and owns transaction and advisory-lock
// plumbing shared by all repositories.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the raw handle for read-only queries outside a transaction.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a single transaction. Any error (or panic) rolls the
// whole unit of work back; ledger and bet state stay consistent.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.WithTx: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store.WithTx: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Advisory locks — transaction-scoped, released automatically at commit/rollback
// ──────────────────────────────────────────────────────────────────────────────

// LockUser takes the non-blocking single-flight lock for a user. Returns
// domain.ErrRateLimited immediately when another admission or cancellation
// for the same user holds it.
func (s *Store) LockUser(ctx context.Context, tx *sqlx.Tx, userID string) error {
	var acquired bool
	err := tx.GetContext(ctx, &acquired,
		`SELECT pg_try_advisory_xact_lock(hashtext($1))`, userID)
	if err != nil {
		return fmt.Errorf("store.LockUser: %w", err)
	}
	if !acquired {
		return domain.ErrRateLimited
	}
	return nil
}

// LockEvent takes the blocking per-event lock. All state-changing operations
// on an event (matching, liquidity synthesis, status transition, resolution)
// are totally ordered behind it.
func (s *Store) LockEvent(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, eventID); err != nil {
		return fmt.Errorf("store.LockEvent: %w", err)
	}
	return nil
}
