package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

type Config struct {
	Backend     string `envconfig:"BACKEND" split_words:"true" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" split_words:"true" default:"data/brain_memory.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" split_words:"true"`
	TopK        int    `envconfig:"TOP_K" split_words:"true" default:"5"`
	Recall      bool   `envconfig:"RECALL" split_words:"true" default:"true"`
}

// Store is a long-term memory backend that owns a connection.
type Store interface {
	contractx.LongTermMemory
	Close() error
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown memory backend %q", contractx.ErrValidation, cfg.Backend)
	}
}

// Noop remembers nothing.
type Noop struct{}

func (Noop) Retrieve(context.Context, string, int) ([]string, error) { return nil, nil }
func (Noop) Index(context.Context, []string) error                   { return nil }
func (Noop) Close() error                                             { return nil }

func contentHash(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}

// keywords extracts lower-cased search terms, dropping punctuation so the
// result is safe inside FTS5 and tsquery expressions.
func keywords(query string, limit int) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func normalizeDocuments(docs []string) []string {
	out := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
