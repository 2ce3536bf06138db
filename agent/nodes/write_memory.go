package orchestratornode

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

type indexResult struct {
	count int
	err   error
}

type pendingIndex struct {
	count int
	done  <-chan indexResult
}

// IndexSearchResults hands the state's search results to the memory indexer
// on a background goroutine tracked by tasks. The flow never waits for it;
// FinalizeReply records the outcome if it is already known.
func IndexSearchResults(
	ctx context.Context,
	in *GraphState,
	memory contractx.LongTermMemory,
	tasks *sync.WaitGroup,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil || in.State == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if memory == nil || len(in.State.SearchResults) == 0 {
		return in, nil
	}

	docs := SearchDocuments(in.State.SearchResults)
	if len(docs) == 0 {
		return in, nil
	}
	queryID := in.State.ID
	done := make(chan indexResult, 1)
	in.pending = append(in.pending, pendingIndex{count: len(docs), done: done})

	tasks.Add(1)
	go func() {
		defer tasks.Done()
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				log.Warn().Err(err).Str("query_id", queryID).Msg("indexing search results failed")
			} else {
				log.Debug().Str("query_id", queryID).Int("documents", len(docs)).Msg("indexed search results")
			}
			done <- indexResult{count: len(docs), err: err}
		}()

		ictx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			ictx, cancel = context.WithTimeout(ictx, timeout)
			defer cancel()
		}
		err = memory.Index(ictx, docs)
	}()

	in.State.Record(contractx.SourceOrchestrator, fmt.Sprintf("Indexing %d search results into long-term memory...", len(docs)))
	return in, nil
}

// SearchDocuments renders search results as memory documents.
func SearchDocuments(results []statex.SearchResult) []string {
	docs := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		if t := strings.TrimSpace(r.Title); t != "" {
			b.WriteString(t)
			b.WriteByte('\n')
		}
		if u := strings.TrimSpace(r.URL); u != "" {
			b.WriteString("Source: ")
			b.WriteString(u)
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSpace(r.Content))
		if doc := strings.TrimSpace(b.String()); doc != "" {
			docs = append(docs, doc)
		}
	}
	return docs
}

func recordIndexing(in *GraphState) {
	for _, p := range in.pending {
		select {
		case r := <-p.done:
			if r.err != nil {
				in.State.Record(contractx.SourceOrchestrator, fmt.Sprintf("Failed to index search results: %v", r.err))
				continue
			}
			in.State.Record(contractx.SourceOrchestrator, fmt.Sprintf("Indexed %d search results into long-term memory.", r.count))
		default:
			in.State.Record(contractx.SourceOrchestrator, fmt.Sprintf("Indexing of %d search results continues in background.", p.count))
		}
	}
	in.pending = nil
}
