package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func formatSearchResults(results []statex.SearchResult) string {
	if len(results) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s", i+1, r.Title, r.URL, r.Content)
	}
	return b.String()
}

// degrade records a collaborator failure on the state. A cancelled context is
// returned so the caller can stop the flow.
func degrade(ctx context.Context, qs *statex.QueryState, source, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	log.Warn().Err(err).Str("query_id", qs.ID).Str("source", source).Msg(what + " failed")
	qs.Record(source, fmt.Sprintf("%s failed: %v", what, err))
	return nil
}
