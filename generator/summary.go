package generator

import (
	"sort"
	"sync"
)

// Action is what happened to one table during a run.
type Action string

const (
	ActionGenerated Action = "generated"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// TableResult is the outcome for one table.
type TableResult struct {
	Table  string
	Action Action
	Reason string   // set for skips
	Files  []string // written, or would-be-written under dry run
	Err    error    // set for failures
}

// FilePreview is one composed file a dry run would have written.
type FilePreview struct {
	Path    string
	Content string
}

// Summary accumulates the outcome of a run. Tables generate
// concurrently, so accumulation is locked; accessors return copies
// sorted by table so display order never depends on scheduling.
type Summary struct {
	DryRun bool

	mu         sync.Mutex
	results    []TableResult
	previews   []FilePreview
	aggregates []string
}

func (s *Summary) Add(r TableResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *Summary) AddPreview(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews = append(s.previews, FilePreview{Path: path, Content: content})
}

func (s *Summary) AddAggregate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates = append(s.aggregates, path)
}

// Results returns every table outcome, sorted by table name.
func (s *Summary) Results() []TableResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TableResult, len(s.results))
	copy(out, s.results)
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}

// Previews returns the dry-run file contents, sorted by path.
func (s *Summary) Previews() []FilePreview {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FilePreview, len(s.previews))
	copy(out, s.previews)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Aggregates returns the schema and types files touched by the run.
func (s *Summary) Aggregates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.aggregates))
	copy(out, s.aggregates)
	return out
}

func (s *Summary) byAction(a Action) []TableResult {
	var out []TableResult
	for _, r := range s.Results() {
		if r.Action == a {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) Generated() []TableResult { return s.byAction(ActionGenerated) }
func (s *Summary) Skipped() []TableResult   { return s.byAction(ActionSkipped) }
func (s *Summary) Failed() []TableResult    { return s.byAction(ActionFailed) }

// HasFailures reports whether any table errored; the CLI exits nonzero
// when it does.
func (s *Summary) HasFailures() bool {
	return len(s.Failed()) > 0
}
