package state

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// QueryState is the single record threaded through every stage of a flow.
// - originalQuery is fixed at construction
// - logs only grow; stages append, the fork/merge step appends branch entries
// - FinalOutput is written by the last stage of the chosen flow
type QueryState struct {
	ID        string    `json:"id"`
	Flow      string    `json:"flow"`
	CreatedAt time.Time `json:"created_at"`

	originalQuery string

	Plan          []string       `json:"plan,omitempty"`
	Memories      []string       `json:"memories,omitempty"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
	LogicalFacts  []string       `json:"logical_facts,omitempty"`
	CreativeDraft string         `json:"creative_draft,omitempty"`
	FinalOutput   string         `json:"final_output,omitempty"`

	// Stage is a human-readable progress marker; it never drives control flow.
	Stage string `json:"current_stage"`

	logs []LogEntry
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type LogEntry struct {
	Source  string    `json:"source"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func NewQueryState(id, query, flow string, now time.Time) *QueryState {
	return &QueryState{
		ID:            id,
		Flow:          flow,
		CreatedAt:     now.UTC(),
		originalQuery: query,
		Stage:         flow + " flow",
		logs:          make([]LogEntry, 0, 16),
	}
}

func (q *QueryState) OriginalQuery() string {
	if q == nil {
		return ""
	}
	return q.originalQuery
}

/* --------------------------------- logs --------------------------------- */

func (q *QueryState) AddLog(source, message string) LogEntry {
	entry := LogEntry{Source: source, Message: message, At: time.Now().UTC()}
	q.logs = append(q.logs, entry)
	return entry
}

// AppendLogs appends already-recorded entries, preserving their order.
func (q *QueryState) AppendLogs(entries ...LogEntry) {
	q.logs = append(q.logs, entries...)
}

// Logs returns a copy of the log stream.
func (q *QueryState) Logs() []LogEntry {
	if q == nil {
		return nil
	}
	out := make([]LogEntry, len(q.logs))
	copy(out, q.logs)
	return out
}

func (q *QueryState) LogCount() int {
	if q == nil {
		return 0
	}
	return len(q.logs)
}

// LogsSince returns a copy of the entries recorded after the first n.
func (q *QueryState) LogsSince(n int) []LogEntry {
	if q == nil || n >= len(q.logs) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]LogEntry, len(q.logs)-n)
	copy(out, q.logs[n:])
	return out
}

/* -------------------------------- helpers ------------------------------- */

func (q *QueryState) HasPlan() bool {
	return q != nil && len(q.Plan) > 0
}

func (q *QueryState) HasFacts() bool {
	return q != nil && len(q.LogicalFacts) > 0
}

func (q *QueryState) HasDraft() bool {
	return q != nil && strings.TrimSpace(q.CreativeDraft) != ""
}

func (q *QueryState) HasFinalOutput() bool {
	return q != nil && strings.TrimSpace(q.FinalOutput) != ""
}

// Clone returns a deep copy. No slice is shared with the receiver, so the copy
// can be mutated on another goroutine.
func (q *QueryState) Clone() *QueryState {
	if q == nil {
		return nil
	}
	out := *q
	out.Plan = cloneStrings(q.Plan)
	out.Memories = cloneStrings(q.Memories)
	out.LogicalFacts = cloneStrings(q.LogicalFacts)
	if q.SearchResults != nil {
		out.SearchResults = make([]SearchResult, len(q.SearchResults))
		copy(out.SearchResults, q.SearchResults)
	}
	out.logs = make([]LogEntry, len(q.logs), len(q.logs)+8)
	copy(out.logs, q.logs)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Record appends a log entry and mirrors it to the process logger at debug
// level.
func (q *QueryState) Record(source, message string) LogEntry {
	entry := q.AddLog(source, message)
	log.Debug().
		Str("query_id", q.ID).
		Str("source", source).
		Str("stage", q.Stage).
		Msg(message)
	return entry
}
