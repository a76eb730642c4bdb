// Package memory is the in-memory mirror used by tests.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/mirror"
)

type Mirror struct {
	mu      sync.Mutex
	entries []core.Transaction
}

var _ mirror.Writer = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Append(ctx context.Context, tx core.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, tx)
	return strconv.Itoa(len(m.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (m *Mirror) Entries() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, len(m.entries))
	copy(out, m.entries)
	return out
}
