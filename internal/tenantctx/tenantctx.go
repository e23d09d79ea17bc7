// Package tenantctx carries the current tenant through context.Context and
// scopes database sessions to it. The tenant travels as an explicit context
// value rather than connection-local state, so scoping never depends on
// connection reuse or on remembering a reset step.
package tenantctx

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ctxKey struct{}

// ErrNoTenant is returned when a tenant-scoped operation runs without a
// tenant in the context.
var ErrNoTenant = errors.New("no tenant in context")

// With returns a child context carrying the tenant id.
func With(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// From extracts the tenant id set by With.
func From(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoTenant
	}
	return id, nil
}

// MustFrom is From for call sites that run behind the tenant middleware,
// where absence is a programming error.
func MustFrom(ctx context.Context) uuid.UUID {
	id, err := From(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// Scope acquires tenant-scoped database sessions. Run pins a single
// connection, sets the session-local app.current_tenant attribute consumed
// by row-level security policies, invokes fn, and unconditionally resets the
// attribute before the connection returns to the pool — including when fn
// fails. Queries issued inside fn are implicitly filtered to the tenant's
// rows.
type Scope struct {
	db *gorm.DB
}

func NewScope(db *gorm.DB) *Scope { return &Scope{db: db} }

// Run executes fn on a connection scoped to the tenant in ctx. Setup failure
// aborts before fn runs; fn failure still triggers the reset, then the error
// propagates.
func (s *Scope) Run(ctx context.Context, fn func(db *gorm.DB) error) error {
	tenantID, err := From(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT set_config('app.current_tenant', ?, false)", tenantID.String()).Error; err != nil {
			return fmt.Errorf("set tenant scope: %w", err)
		}
		defer conn.Exec("SELECT set_config('app.current_tenant', '', false)")
		return fn(conn)
	})
}

// RunTx is Run with the unit of work additionally wrapped in a transaction.
// The scope attribute is set on the pinned connection before the transaction
// opens, so row-level security applies to every statement inside it.
func (s *Scope) RunTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.Run(ctx, func(conn *gorm.DB) error {
		return conn.Transaction(fn)
	})
}
