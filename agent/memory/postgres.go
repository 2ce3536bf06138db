package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type memoryDocument struct {
	bun.BaseModel `bun:"table:brain_memories,alias:m"`

	ID          string    `bun:"id,pk"`
	ContentHash string    `bun:"content_hash,notnull,unique"`
	Content     string    `bun:"content,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// PostgresStore keeps documents in Postgres and searches them with a
// tsvector expression index ranked by ts_rank.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*memoryDocument)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create memory table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS brain_memories_tsv_idx ON brain_memories USING GIN (to_tsvector('english', content))`,
	); err != nil {
		return fmt.Errorf("create memory index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}
	terms := keywords(query, maxQueryTerms)
	if len(terms) == 0 {
		return nil, nil
	}
	tsquery := strings.Join(terms, " | ")

	var docs []memoryDocument
	err := s.db.NewSelect().
		Model(&docs).
		Column("content").
		Where("to_tsvector('english', content) @@ to_tsquery('english', ?)", tsquery).
		OrderExpr("ts_rank(to_tsvector('english', content), to_tsquery('english', ?)) DESC", tsquery).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: search documents: %v", contractx.ErrMemoryUnavailable, err)
	}

	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Content)
	}
	return out, nil
}

func (s *PostgresStore) Index(ctx context.Context, documents []string) error {
	docs := normalizeDocuments(documents)
	if len(docs) == 0 {
		return nil
	}

	rows := make([]memoryDocument, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, memoryDocument{
			ID:          uuid.NewString(),
			ContentHash: contentHash(d),
			Content:     d,
		})
	}

	if _, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (content_hash) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert documents: %v", contractx.ErrMemoryUnavailable, err)
	}
	return nil
}
