package persistence

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/pkg/composables"
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.m))
}

type designationKey struct {
	tenantID uuid.UUID
	id       string
}

// InmemDesignationRepository keeps designations in process memory. Writes are
// serialized so name uniqueness holds under concurrent callers.
type InmemDesignationRepository struct {
	writeMu sync.Mutex
	nextID  int64
	storage *SafeMap[designationKey, designation.Designation]
}

func NewInmemDesignationRepository() *InmemDesignationRepository {
	return &InmemDesignationRepository{
		storage: NewSafeMap[designationKey, designation.Designation](),
	}
}

func (r *InmemDesignationRepository) tenantItems(tenantID uuid.UUID) []designation.Designation {
	all := r.storage.Values()
	out := make([]designation.Designation, 0, len(all))
	for _, d := range all {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a < b
	})
	return out
}

func (r *InmemDesignationRepository) GetAll(ctx context.Context) ([]designation.Designation, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.tenantItems(tenantID), nil
}

func (r *InmemDesignationRepository) GetByID(ctx context.Context, id string) (designation.Designation, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	d, ok := r.storage.Get(designationKey{tenantID: tenantID, id: id})
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}
	return d, nil
}

func (r *InmemDesignationRepository) nameTaken(tenantID uuid.UUID, name, exceptID string) bool {
	key := designation.NameKey(name)
	for _, d := range r.tenantItems(tenantID) {
		if d.ID != exceptID && designation.NameKey(d.Name) == key {
			return true
		}
	}
	return false
}

func (r *InmemDesignationRepository) Create(ctx context.Context, d designation.Designation) (designation.Designation, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.nameTaken(tenantID, d.Name, "") {
		return designation.Designation{}, designation.ErrNameTaken
	}
	if d.ParentID != nil {
		if _, ok := r.storage.Get(designationKey{tenantID: tenantID, id: *d.ParentID}); !ok {
			return designation.Designation{}, designation.ErrParentNotFound
		}
	}
	r.nextID++
	now := time.Now().UTC()
	d.ID = strconv.FormatInt(r.nextID, 10)
	d.TenantID = tenantID
	d.CreatedAt = now
	d.UpdatedAt = now
	r.storage.Set(designationKey{tenantID: tenantID, id: d.ID}, d)
	return d, nil
}

func (r *InmemDesignationRepository) Update(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return designation.Designation{}, err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	key := designationKey{tenantID: tenantID, id: id}
	current, ok := r.storage.Get(key)
	if !ok {
		return designation.Designation{}, designation.ErrNotFound
	}
	if patch.ParentSet && patch.ParentID != nil {
		if _, ok := r.storage.Get(designationKey{tenantID: tenantID, id: *patch.ParentID}); !ok {
			return designation.Designation{}, designation.ErrParentNotFound
		}
	}
	updated := patch.Apply(current)
	updated.UpdatedAt = time.Now().UTC()
	r.storage.Set(key, updated)
	return updated, nil
}

func (r *InmemDesignationRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	key := designationKey{tenantID: tenantID, id: id}
	if _, ok := r.storage.Get(key); !ok {
		return designation.ErrNotFound
	}
	r.storage.Delete(key)
	for _, d := range r.tenantItems(tenantID) {
		if d.ParentID != nil && *d.ParentID == id {
			d.ParentID = nil
			r.storage.Set(designationKey{tenantID: tenantID, id: d.ID}, d)
		}
	}
	return nil
}

var _ designation.Repository = (*InmemDesignationRepository)(nil)
