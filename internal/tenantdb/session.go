// Package tenantdb binds database sessions to a tenant's schema. Every
// handle it returns resolves unqualified table names inside the caller's
// own schema; the sandboxed variant additionally excludes the admin schema
// and caps statement execution time inside the database itself.
package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/store"
	"go.uber.org/zap"
)

// identifierPattern is the closed shape of every schema name this package
// will ever place on a search_path. Anything else fails closed.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is acceptable as a schema name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

type Config struct {
	// AdminSchema is appended to the search_path of standard sessions and
	// excluded from sandboxed ones.
	AdminSchema string

	// SandboxStatementTimeout is applied with SET LOCAL inside sandboxed
	// sessions, so the database kills runaway statements itself.
	SandboxStatementTimeout time.Duration
}

// Factory opens tenant-scoped database sessions. Schema names come from
// the tenant registry keyed by the verified tenant id, never from
// client-supplied headers, so a forged tenant id cannot escape isolation.
type Factory struct {
	pool    *pgxpool.Pool
	tenants domain.TenantStore
	cfg     Config
	logger  *zap.Logger
}

func New(pool *pgxpool.Pool, tenants domain.TenantStore, cfg Config, logger *zap.Logger) (*Factory, error) {
	if !ValidIdentifier(cfg.AdminSchema) {
		return nil, fmt.Errorf("invalid admin schema name %q", cfg.AdminSchema)
	}
	if cfg.SandboxStatementTimeout <= 0 {
		cfg.SandboxStatementTimeout = 3 * time.Second
	}
	return &Factory{pool: pool, tenants: tenants, cfg: cfg, logger: logger}, nil
}

// Acquire opens a standard tenant session: search_path is the tenant's
// schema plus the admin schema, so application code sees both business
// rows and tenant-scoped configuration.
func (f *Factory) Acquire(ctx context.Context, tctx domain.TenantContext) (*Session, error) {
	return f.open(ctx, tctx, false)
}

// AcquireSandbox opens a restricted session for user-authored SQL:
// search_path is the tenant's schema only and every statement is bounded
// by the configured timeout. Settings are transaction-local and
// re-applied on every acquisition, never reused across requests.
func (f *Factory) AcquireSandbox(ctx context.Context, tctx domain.TenantContext) (*Session, error) {
	return f.open(ctx, tctx, true)
}

func (f *Factory) open(ctx context.Context, tctx domain.TenantContext, sandbox bool) (*Session, error) {
	schema, err := f.schemaFor(ctx, tctx)
	if err != nil {
		return nil, err
	}

	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	fail := func(cause error) (*Session, error) {
		_ = tx.Rollback(ctx)
		conn.Release()
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, cause)
	}

	// set_config with is_local=true scopes the path to this transaction.
	path := searchPathFor(schema, f.cfg.AdminSchema, sandbox)
	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, path); err != nil {
		return fail(err)
	}

	if sandbox {
		// statement_timeout cannot be bound as a parameter; the value is a
		// server-side integer clamped at construction.
		ms := f.cfg.SandboxStatementTimeout.Milliseconds()
		if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL statement_timeout = %d`, ms)); err != nil {
			return fail(err)
		}
	}

	f.logger.Debug("tenant session opened",
		zap.String("tenant_id", tctx.TenantID),
		zap.Bool("sandbox", sandbox),
	)

	return &Session{tx: tx, conn: conn}, nil
}

// schemaFor resolves the tenant's schema name from the registry. A tenant
// id with no registry row is treated as unauthenticated: the identity
// cannot be bound to a schema, so it is not usable.
func (f *Factory) schemaFor(ctx context.Context, tctx domain.TenantContext) (string, error) {
	tenant, err := f.tenants.GetByID(ctx, tctx.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.ErrUnauthenticated
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if !ValidIdentifier(tenant.SchemaName) {
		return "", fmt.Errorf("%w: registered schema name is not a valid identifier", domain.ErrUpstreamUnavailable)
	}
	return tenant.SchemaName, nil
}

func searchPathFor(schema, adminSchema string, sandbox bool) string {
	if sandbox {
		return schema
	}
	return schema + ", " + adminSchema
}

// Session is a scoped database handle: one pooled connection with an open
// transaction whose schema binding lives only as long as the transaction.
// Release is safe to call on every exit path, including after Commit.
type Session struct {
	tx        pgx.Tx
	conn      *pgxpool.Conn
	committed bool
	released  bool
}

// Tx exposes the bound transaction for issuing statements.
func (s *Session) Tx() pgx.Tx {
	return s.tx
}

func (s *Session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Release rolls the transaction back unless it was committed and returns
// the connection to the pool.
func (s *Session) Release(ctx context.Context) {
	if s.released {
		return
	}
	s.released = true
	if !s.committed {
		_ = s.tx.Rollback(ctx)
	}
	s.conn.Release()
}
