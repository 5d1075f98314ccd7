package history

import (
	"context"
	"fmt"
)

// Storage backends selectable from configuration
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// OpenSlot returns the slot for backend. location is a file path for the
// file and sqlite backends and a DSN for postgres. The returned close
// function releases any database handle.
func OpenSlot(ctx context.Context, backend, location string) (Slot, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case BackendMemory:
		return NewMemorySlot(), noop, nil
	case BackendFile:
		return NewFileSlot(location), noop, nil
	case BackendSQLite:
		slot, err := OpenSQLite(ctx, location, DefaultKey)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	case BackendPostgres:
		slot, err := OpenPostgres(ctx, location, DefaultKey)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", backend)
	}
}
