package binstore

import (
	"sync"

	"github.com/pscheid92/ecotrack/internal/domain"
	"github.com/pscheid92/ecotrack/internal/metrics"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	kindCreate = "create"
	kindDelete = "delete"
	kindEdit   = "edit"
	kindStatus = "status"

	resultApplied       = "applied"
	resultNotFound      = "not_found"
	resultNoMatch       = "no_match"
	resultInvalidStatus = "invalid_status"
)

// Store is a mutex-guarded, insertion-ordered bin registry.
type Store struct {
	mu     sync.Mutex
	bins   *orderedmap.OrderedMap[int64, *domain.Bin]
	nextID int64
}

var _ domain.BinStore = (*Store)(nil)

func New() *Store {
	return &Store{
		bins:   orderedmap.New[int64, *domain.Bin](),
		nextID: 1,
	}
}

// Create allocates the next id and inserts an empty bin at the given location.
func (s *Store) Create(latitude, longitude float64) domain.Bin {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin := &domain.Bin{
		ID:        s.nextID,
		Latitude:  latitude,
		Longitude: longitude,
		Status:    domain.StatusEmpty,
	}
	s.nextID++
	s.bins.Set(bin.ID, bin)

	s.recordLocked(kindCreate, resultApplied)
	return *bin
}

// Delete removes the bin and reports whether it existed.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.bins.Delete(id); !existed {
		s.recordLocked(kindDelete, resultNotFound)
		return false
	}

	s.recordLocked(kindDelete, resultApplied)
	return true
}

// EditLocation moves the oldest bin located exactly at (oldLatitude, oldLongitude).
// Returns false without mutating anything when no bin sits there.
func (s *Store) EditLocation(oldLatitude, oldLongitude, newLatitude, newLongitude float64) (domain.Bin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pair := s.bins.Oldest(); pair != nil; pair = pair.Next() {
		bin := pair.Value
		if !bin.At(oldLatitude, oldLongitude) {
			continue
		}
		bin.Latitude = newLatitude
		bin.Longitude = newLongitude
		s.recordLocked(kindEdit, resultApplied)
		return *bin, true
	}

	s.recordLocked(kindEdit, resultNoMatch)
	return domain.Bin{}, false
}

// UpdateStatus sets the fill status of a bin.
// Existence is checked before the status value: ErrBinNotFound wins over ErrInvalidStatus.
func (s *Store) UpdateStatus(id int64, status string) (domain.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin, exists := s.bins.Get(id)
	if !exists {
		s.recordLocked(kindStatus, resultNotFound)
		return domain.Bin{}, domain.ErrBinNotFound
	}

	parsed, err := domain.ParseBinStatus(status)
	if err != nil {
		s.recordLocked(kindStatus, resultInvalidStatus)
		return domain.Bin{}, err
	}

	bin.Status = parsed
	s.recordLocked(kindStatus, resultApplied)
	return *bin, nil
}

// Snapshot returns a copy of every bin in creation order.
func (s *Store) Snapshot() []domain.Bin {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]domain.Bin, 0, s.bins.Len())
	for pair := s.bins.Oldest(); pair != nil; pair = pair.Next() {
		snapshot = append(snapshot, *pair.Value)
	}
	return snapshot
}

func (s *Store) Get(id int64) (domain.Bin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin, exists := s.bins.Get(id)
	if !exists {
		return domain.Bin{}, false
	}
	return *bin, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bins.Len()
}

// recordLocked must be called with mu held.
func (s *Store) recordLocked(kind, result string) {
	metrics.BinMutationsTotal.WithLabelValues(kind, result).Inc()
	metrics.BinsCurrent.Set(float64(s.bins.Len()))
}
