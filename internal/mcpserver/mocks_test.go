package mcpserver

import (
	"context"

	"github.com/54b3r/kbrag-go/internal/query"
)

// mockKnowledge is a mock implementation of Knowledge that records the
// arguments it receives.
type mockKnowledge struct {
	text     string
	stats    string
	statsErr error

	lastReq    query.Request
	lastTask   string
	lastClient string
}

func (m *mockKnowledge) QueryKnowledge(_ context.Context, req query.Request) string {
	m.lastReq = req
	return m.text
}

func (m *mockKnowledge) Methodology(_ context.Context, task string) string {
	m.lastTask = task
	return m.text
}

func (m *mockKnowledge) CaseStudy(_ context.Context, client string) string {
	m.lastClient = client
	return m.text
}

func (m *mockKnowledge) Stats(_ context.Context) (string, error) {
	return m.stats, m.statsErr
}
