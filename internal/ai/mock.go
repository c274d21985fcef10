package ai

import (
	"context"
	"strings"
	"sync"
)

// Mock is a deterministic Client for tests and offline sessions. The default
// writer returns a fixed line and the default checker returns a valid
// no-delta document, so turns commit identically on every run.
type Mock struct {
	mu    sync.Mutex
	calls []Request

	WriterFunc  func(req Request) (string, error)
	CheckerFunc func(req Request) (string, error)
}

func NewMock() *Mock {
	return &Mock{}
}

// Calls returns a copy of every request seen, in order.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	writer, checker := m.WriterFunc, m.CheckerFunc
	m.mu.Unlock()

	if req.Kind == KindChecker {
		if checker != nil {
			return checker(req)
		}
		return `{"safety":{"ok":true}}`, nil
	}
	if writer != nil {
		return writer(req)
	}
	return "The moment passes.", nil
}

// GenerateStream replays the Generate result in small chunks so callers
// exercise their chunk handling.
func (m *Mock) GenerateStream(ctx context.Context, req Request, recv func(string)) (string, error) {
	text, err := m.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if recv != nil {
		words := strings.SplitAfter(text, " ")
		for _, w := range words {
			if w != "" {
				recv(w)
			}
		}
	}
	return text, nil
}
