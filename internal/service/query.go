package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/tenantdb"
	"go.uber.org/zap"
)

// maxQueryRows caps the result set returned to the SQL Studio client.
const maxQueryRows = 500

// ErrQueryTimeout is returned when the database killed a sandboxed
// statement for exceeding its execution limit.
var ErrQueryTimeout = errors.New("query exceeded the execution time limit")

// QueryService runs user-authored read queries through sandboxed tenant
// sessions. Primary containment is the session itself (search_path limited
// to the tenant schema, database-enforced statement timeout); vetQuery
// adds defense in depth against fully-qualified escapes.
type QueryService struct {
	sessions    *tenantdb.Factory
	adminSchema string
	logger      *zap.Logger
}

func NewQueryService(sessions *tenantdb.Factory, adminSchema string, logger *zap.Logger) *QueryService {
	return &QueryService{sessions: sessions, adminSchema: strings.ToLower(adminSchema), logger: logger}
}

type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// Execute runs a single read statement inside a sandboxed session and
// always rolls the transaction back.
func (s *QueryService) Execute(ctx context.Context, tctx domain.TenantContext, query string) (*QueryResult, error) {
	query, err := s.vetQuery(query)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.AcquireSandbox(ctx, tctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release(ctx)

	rows, err := sess.Tx().Query(ctx, query)
	if err != nil {
		return nil, s.mapQueryError(err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	result := &QueryResult{Columns: make([]string, len(fds))}
	for i, fd := range fds {
		result.Columns[i] = string(fd.Name)
	}

	for rows.Next() {
		if len(result.Rows) >= maxQueryRows {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, s.mapQueryError(err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil && !result.Truncated {
		return nil, s.mapQueryError(err)
	}

	result.RowCount = len(result.Rows)

	s.logger.Info("sandboxed query executed",
		zap.String("tenant_id", tctx.TenantID),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// ListVisibleTables reports the tables a standard tenant session can see,
// grouped by schema, for the schema browser.
func (s *QueryService) ListVisibleTables(ctx context.Context, tctx domain.TenantContext) (map[string][]string, error) {
	sess, err := s.sessions.Acquire(ctx, tctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release(ctx)

	rows, err := sess.Tx().Query(ctx,
		`SELECT table_schema, table_name
		 FROM information_schema.tables
		 WHERE table_schema = ANY (current_schemas(false))
		 ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schemas := make(map[string][]string)
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, err
		}
		schemas[schema] = append(schemas[schema], table)
	}
	return schemas, rows.Err()
}

// vetQuery rejects statements the sandbox must never run: anything that is
// not a single SELECT (or WITH), and anything that names the admin schema
// as an identifier. The search_path restriction alone does not stop a
// fully-qualified "admin_schema.table" reference, hence this check. The
// statement is scanned token by token so quoting, case and whitespace
// tricks cannot smuggle the schema name past a naive substring match;
// string literals are skipped, so a literal mentioning the schema name
// (or containing a semicolon) stays legal.
func (s *QueryService) vetQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return "", domain.MissingField("query")
	}

	first := strings.ToLower(firstWord(trimmed))
	if first != "select" && first != "with" {
		return "", &domain.ValidationError{Field: "query", Message: "only read queries are allowed"}
	}

	idents, multi := scanStatement(trimmed)
	if multi {
		return "", &domain.ValidationError{Field: "query", Message: "multiple statements are not allowed"}
	}
	for _, ident := range idents {
		if ident == s.adminSchema {
			return "", &domain.ValidationError{Field: "query", Message: "query references a restricted schema"}
		}
	}

	return trimmed, nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' {
			return s[:i]
		}
	}
	return s
}

// scanStatement walks a statement outside single-quoted literals and
// returns every identifier token lowercased (double-quoted identifiers
// are folded into plain tokens) plus whether a statement separator was
// seen. '' and "" escapes are honored.
func scanStatement(stmt string) (idents []string, multi bool) {
	var (
		inLiteral bool
		inQuoted  bool
		tok       strings.Builder
	)
	flush := func() {
		if tok.Len() > 0 {
			idents = append(idents, strings.ToLower(tok.String()))
			tok.Reset()
		}
	}

	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case inLiteral:
			if c == '\'' {
				if i+1 < len(stmt) && stmt[i+1] == '\'' {
					i++
					continue
				}
				inLiteral = false
			}
		case inQuoted:
			if c == '"' {
				if i+1 < len(stmt) && stmt[i+1] == '"' {
					tok.WriteByte(c)
					i++
					continue
				}
				inQuoted = false
				flush()
				continue
			}
			tok.WriteByte(c)
		case c == '\'':
			flush()
			inLiteral = true
		case c == '"':
			flush()
			inQuoted = true
		case c == ';':
			flush()
			multi = true
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			tok.WriteByte(c)
		default:
			flush()
		}
	}
	flush()
	return idents, multi
}

// mapQueryError keeps database detail out of responses: timeouts get a
// dedicated error, other query errors surface the database message only
// (which describes the user's own statement).
func (s *QueryService) mapQueryError(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		// 57014: query_canceled, raised by statement_timeout.
		if pge.Code == "57014" {
			return ErrQueryTimeout
		}
		return &domain.ValidationError{Field: "query", Message: pge.Message}
	}
	return fmt.Errorf("execute query: %w", err)
}
