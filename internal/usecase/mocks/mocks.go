package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/iho/txengine/internal/domain"
)

// SliceSource is an in-memory RecordSource. An entry with a non-nil Err is
// returned as that error instead of a record.
type SliceSource struct {
	items []SourceItem
	pos   int
}

// SourceItem is a single element yielded by SliceSource.
type SourceItem struct {
	Record domain.Record
	Err    error
}

// NewSliceSource creates a source yielding records in order.
func NewSliceSource(records ...domain.Record) *SliceSource {
	s := &SliceSource{}
	for _, r := range records {
		s.items = append(s.items, SourceItem{Record: r})
	}
	return s
}

// NewSliceSourceItems creates a source from explicit items.
func NewSliceSourceItems(items ...SourceItem) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next() (domain.Record, error) {
	if s.pos >= len(s.items) {
		return domain.Record{}, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item.Record, item.Err
}

// SequenceIDGenerator returns the configured IDs in order, then repeats the last.
type SequenceIDGenerator struct {
	mu  sync.Mutex
	ids []string
	pos int
}

func NewSequenceIDGenerator(ids ...string) *SequenceIDGenerator {
	return &SequenceIDGenerator{ids: ids}
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return ""
	}
	id := g.ids[g.pos]
	if g.pos < len(g.ids)-1 {
		g.pos++
	}
	return id
}

// RecordingExporter is an in-memory BalanceExporter.
type RecordingExporter struct {
	mu      sync.Mutex
	name    string
	exports map[string][]domain.Balance

	ExportFunc func(ctx context.Context, runID string, balances []domain.Balance) error
}

func NewRecordingExporter(name string) *RecordingExporter {
	return &RecordingExporter{
		name:    name,
		exports: make(map[string][]domain.Balance),
	}
}

func (e *RecordingExporter) Name() string {
	return e.name
}

func (e *RecordingExporter) Export(ctx context.Context, runID string, balances []domain.Balance) error {
	if e.ExportFunc != nil {
		return e.ExportFunc(ctx, runID, balances)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports[runID] = balances
	return nil
}

// Exported returns the balances recorded for runID.
func (e *RecordingExporter) Exported(runID string) ([]domain.Balance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.exports[runID]
	return b, ok
}
