package repo

import (
	"context"
	"errors"

	"github.com/trackaship/alarmsender/internal/domain"
)

// Ports (interfaces) — swap in any store adapter later.

var (
	// ErrAccessDenied marks a store refusing to serve a read, typically a
	// credentials or rules problem.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound marks a single-document lookup that matched nothing.
	ErrNotFound = errors.New("not found")
)

// OwnerIterator streams owner IDs lazily. Next returns iterator.Done
// (google.golang.org/api/iterator) after the last owner. Iterators are
// single-use: a fresh scan needs a fresh iterator.
type OwnerIterator interface {
	Next() (domain.OwnerID, error)
}

// AlertIterator streams one owner's alert records lazily, ending with
// iterator.Done.
type AlertIterator interface {
	Next() (domain.AlertRecord, error)
}

// AlertStore is the two-level hierarchical store of alert definitions.
type AlertStore interface {
	// Owners enumerates every owner with an alert collection.
	Owners(ctx context.Context) (OwnerIterator, error)
	// Alerts streams one owner's alerts.
	Alerts(ctx context.Context, owner domain.OwnerID) (AlertIterator, error)
	// GetAlert reads one alert directly; used by the diagnostic probe.
	// Returns ErrNotFound when the document does not exist.
	GetAlert(ctx context.Context, owner domain.OwnerID, id domain.AlertID) (*domain.AlertRecord, error)
}

// PositionStore resolves the most recent observation for a target.
type PositionStore interface {
	// Latest returns nil, nil when the target has never been observed.
	Latest(ctx context.Context, target domain.TargetID) (*domain.Position, error)
}
