package memory

import (
	"context"
	"sync"

	"google.golang.org/api/iterator"

	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/repo"
)

var (
	_ repo.AlertStore    = (*Store)(nil)
	_ repo.PositionStore = (*Store)(nil)
)

// Store is an in-memory alert and position store. It backs tests and
// position lookups when no DATABASE_URL is configured.
type Store struct {
	mu        sync.RWMutex
	owners    []domain.OwnerID
	alerts    map[domain.OwnerID][]domain.AlertRecord
	positions map[domain.TargetID][]domain.Position
}

func New() *Store {
	return &Store{
		alerts:    make(map[domain.OwnerID][]domain.AlertRecord),
		positions: make(map[domain.TargetID][]domain.Position),
	}
}

// AddAlert registers an alert under its owner, creating the owner on first use.
func (m *Store) AddAlert(a domain.AlertRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[a.Owner]; !ok {
		m.owners = append(m.owners, a.Owner)
	}
	m.alerts[a.Owner] = append(m.alerts[a.Owner], a)
}

// AddOwner registers an owner with no alerts.
func (m *Store) AddOwner(o domain.OwnerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[o]; !ok {
		m.owners = append(m.owners, o)
		m.alerts[o] = nil
	}
}

// AddPosition appends an observation for a target.
func (m *Store) AddPosition(p domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Target] = append(m.positions[p.Target], p)
}

func (m *Store) Owners(ctx context.Context) (repo.OwnerIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.OwnerID, len(m.owners))
	copy(out, m.owners)
	return &ownerIter{owners: out}, nil
}

func (m *Store) Alerts(ctx context.Context, owner domain.OwnerID) (repo.AlertIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs, ok := m.alerts[owner]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := make([]domain.AlertRecord, len(recs))
	copy(out, recs)
	return &alertIter{recs: out}, nil
}

func (m *Store) GetAlert(ctx context.Context, owner domain.OwnerID, id domain.AlertID) (*domain.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.alerts[owner] {
		if a.ID == id {
			rec := a
			return &rec, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) Latest(ctx context.Context, target domain.TargetID) (*domain.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obs := m.positions[target]
	if len(obs) == 0 {
		return nil, nil
	}
	latest := obs[0]
	for _, p := range obs[1:] {
		if p.ObservedAt.After(latest.ObservedAt) {
			latest = p
		}
	}
	return &latest, nil
}

type ownerIter struct {
	owners []domain.OwnerID
	i      int
}

func (it *ownerIter) Next() (domain.OwnerID, error) {
	if it.i >= len(it.owners) {
		return "", iterator.Done
	}
	o := it.owners[it.i]
	it.i++
	return o, nil
}

type alertIter struct {
	recs []domain.AlertRecord
	i    int
}

func (it *alertIter) Next() (domain.AlertRecord, error) {
	if it.i >= len(it.recs) {
		return domain.AlertRecord{}, iterator.Done
	}
	r := it.recs[it.i]
	it.i++
	return r, nil
}
