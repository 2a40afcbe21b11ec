package vecindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "legal-rag/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// Columns promoted out of the metadata JSON so filters hit real indexes.
var scalarColumns = map[string]bool{
	"document_id":   true,
	"document_type": true,
	"jurisdiction":  true,
	"law_status":    true,
}

var arrayColumns = map[string]bool{
	"statute_numbers": true,
	"case_citations":  true,
}

// PgvectorIndex implements Index on Postgres with the pgvector extension.
type PgvectorIndex struct {
	db        *sql.DB
	table     string
	dimension int
	logger    *zap.Logger
}

func NewPgvectorIndex(ctx context.Context, connStr, table string, dimension int, logger *zap.Logger) (*PgvectorIndex, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, apperrors.WrapError(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, apperrors.WrapError(err, "ping postgres")
	}
	idx := &PgvectorIndex{db: db, table: tableName(table), dimension: dimension, logger: logger}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// tableName folds an index name into a safe SQL identifier. Names arrive
// from configuration and may use hyphens.
func tableName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "legal_chunks"
	}
	return b.String()
}

func (p *PgvectorIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id TEXT PRIMARY KEY,
            document_id TEXT NOT NULL DEFAULT '',
            document_type TEXT NOT NULL DEFAULT '',
            jurisdiction TEXT NOT NULL DEFAULT '',
            law_status TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL DEFAULT '',
            statute_numbers TEXT[] NOT NULL DEFAULT '{}'::TEXT[],
            case_citations TEXT[] NOT NULL DEFAULT '{}'::TEXT[],
            metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
            embedding vector(%d)
        )`, p.table, p.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_document_id ON %s(document_id)`, p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.WrapError(err, "ensure pgvector schema")
		}
	}
	return nil
}

func (p *PgvectorIndex) Upsert(ctx context.Context, items []Item) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (id, document_id, document_type, jurisdiction, law_status,
                        content, statute_numbers, case_citations, metadata, embedding)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            document_id = EXCLUDED.document_id,
            document_type = EXCLUDED.document_type,
            jurisdiction = EXCLUDED.jurisdiction,
            law_status = EXCLUDED.law_status,
            content = EXCLUDED.content,
            statute_numbers = EXCLUDED.statute_numbers,
            case_citations = EXCLUDED.case_citations,
            metadata = EXCLUDED.metadata,
            embedding = EXCLUDED.embedding
    `, p.table)

	for _, item := range items {
		if p.dimension > 0 && len(item.Values) != p.dimension {
			return apperrors.WrapErrorf(apperrors.ErrDimensionMismatch,
				"item %s has %d values, index expects %d", item.ID, len(item.Values), p.dimension)
		}
		metaJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return apperrors.WrapError(err, "marshal chunk metadata")
		}
		meta := item.Metadata
		_, err = p.db.ExecContext(ctx, query,
			item.ID,
			metaString(meta, "document_id"),
			metaString(meta, "document_type"),
			metaString(meta, "jurisdiction"),
			metaString(meta, "law_status"),
			metaString(meta, "content"),
			pq.Array(metaStrings(meta, "statute_numbers")),
			pq.Array(metaStrings(meta, "case_citations")),
			metaJSON,
			pgvector.NewVector(item.Values),
		)
		if err != nil {
			return apperrors.WrapErrorf(err, "upsert chunk %s", item.ID)
		}
	}
	return nil
}

func (p *PgvectorIndex) Query(ctx context.Context, vector []float32, topK int, filter *Filter, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	args := []any{pgvector.NewVector(vector)}
	where := buildFilterSQL(filter, &args)
	query := fmt.Sprintf(`
        SELECT id, 1 - (embedding <=> $1) AS score, metadata, content
        FROM %s %s
        ORDER BY embedding <=> $1
        LIMIT %d
    `, p.table, where, topK)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.WrapError(err, "query pgvector index")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		var metaJSON []byte
		var content string
		if err := rows.Scan(&match.ID, &match.Score, &metaJSON, &content); err != nil {
			return nil, apperrors.WrapError(err, "scan pgvector row")
		}
		if includeMetadata {
			match.Metadata = decodeJSONMetadata(metaJSON)
			match.Metadata["content"] = content
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (p *PgvectorIndex) Delete(ctx context.Context, filter *Filter) error {
	var args []any
	where := buildFilterSQL(filter, &args)
	if where == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "refusing unfiltered delete")
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s %s`, p.table, where), args...)
	return apperrors.WrapError(err, "delete from pgvector index")
}

func (p *PgvectorIndex) Describe(ctx context.Context) (Stats, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&count); err != nil {
		return Stats{}, apperrors.WrapError(err, "count pgvector index")
	}
	return Stats{Count: count, Dimension: p.dimension}, nil
}

func (p *PgvectorIndex) List(ctx context.Context, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 100
	}
	rows, err := p.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, metadata, content FROM %s ORDER BY id LIMIT %d`, p.table, topK))
	if err != nil {
		return nil, apperrors.WrapError(err, "list pgvector index")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		var metaJSON []byte
		var content string
		if err := rows.Scan(&match.ID, &metaJSON, &content); err != nil {
			return nil, apperrors.WrapError(err, "scan pgvector row")
		}
		match.Metadata = decodeJSONMetadata(metaJSON)
		match.Metadata["content"] = content
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// buildFilterSQL renders the filter grammar to a WHERE clause, appending
// bind arguments as it goes.
func buildFilterSQL(f *Filter, args *[]any) string {
	clause := filterClause(f, args)
	if clause == "" {
		return ""
	}
	return "WHERE " + clause
}

func filterClause(f *Filter, args *[]any) string {
	if f == nil {
		return ""
	}
	var parts []string
	for field, value := range f.Equals {
		*args = append(*args, value)
		n := len(*args)
		switch {
		case arrayColumns[field]:
			parts = append(parts, fmt.Sprintf("$%d = ANY(%s)", n, field))
		case scalarColumns[field]:
			parts = append(parts, fmt.Sprintf("%s = $%d", field, n))
		default:
			parts = append(parts, fmt.Sprintf("metadata->>'%s' = $%d", field, n))
		}
	}
	if len(f.Or) > 0 {
		var branches []string
		for _, branch := range f.Or {
			if c := filterClause(branch, args); c != "" {
				branches = append(branches, "("+c+")")
			}
		}
		if len(branches) > 0 {
			parts = append(parts, "("+strings.Join(branches, " OR ")+")")
		}
	}
	return strings.Join(parts, " AND ")
}

func decodeJSONMetadata(raw []byte) Metadata {
	meta := Metadata{}
	if len(raw) == 0 {
		return meta
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return meta
	}
	for key, value := range decoded {
		if list, ok := value.([]any); ok {
			strs := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok {
					strs = append(strs, s)
				}
			}
			meta[key] = strs
			continue
		}
		meta[key] = value
	}
	return meta
}

func metaString(meta Metadata, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaStrings(meta Metadata, key string) []string {
	switch v := meta[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
