package sheets

import (
	"context"
	"fmt"
	"sync"

	"finanze/internal/report"
)

// Memory keeps exported tabs in process. It backs tests and local runs
// without a spreadsheet.
type Memory struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func NewMemory() *Memory {
	return &Memory{tabs: make(map[string][][]any)}
}

func (m *Memory) AppendReport(_ context.Context, jobID int64, d report.Data) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	title := TabTitle(jobID, d)
	m.tabs[title] = append(m.tabs[title], Rows(d)...)
	return fmt.Sprintf("mem:%s", title), nil
}

// Tab returns a copy of the rows written to title.
func (m *Memory) Tab(title string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.tabs[title]...)
}
