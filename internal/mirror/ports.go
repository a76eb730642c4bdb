// Package mirror defines the external ledger read model: a write-only
// copy of projected transactions kept outside the service.
package mirror

import (
	"context"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
)

// Writer appends one ledger entry to the mirror and returns an opaque
// reference to the appended row.
type Writer interface {
	Append(ctx context.Context, tx core.Transaction) (string, error)
}
