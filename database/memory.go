package database

import (
	"context"
	"sort"
	"sync"

	"github.com/earthrise-media/assetmap/api/model"
	"github.com/pkg/errors"
)

//MemoryStore keeps records in process. It follows the same rules as the
//postgres store, including clearing light references when a customer goes away.
type MemoryStore struct {
	mu     sync.RWMutex
	nextId map[model.Kind]int64
	rows   map[model.Kind]map[int64]model.GeoRecord
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		nextId: make(map[model.Kind]int64),
		rows:   make(map[model.Kind]map[int64]model.GeoRecord),
	}
	for _, k := range model.Kinds {
		ms.rows[k] = make(map[int64]model.GeoRecord)
	}
	return ms
}

func (ms *MemoryStore) Insert(ctx context.Context, rec model.GeoRecord) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if err := ms.checkReferences(rec); err != nil {
		return 0, err
	}
	ms.nextId[rec.Kind()]++
	id := ms.nextId[rec.Kind()]
	rec.SetId(id)
	ms.rows[rec.Kind()][id] = clone(rec)
	return id, nil
}

func (ms *MemoryStore) Get(ctx context.Context, kind model.Kind, id int64) (model.GeoRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.rows[kind][id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s %d", kind, id)
	}
	return clone(rec), nil
}

func (ms *MemoryStore) Save(ctx context.Context, rec model.GeoRecord) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.rows[rec.Kind()][rec.GetId()]; !ok {
		return errors.Wrapf(ErrNotFound, "%s %d", rec.Kind(), rec.GetId())
	}
	if err := ms.checkReferences(rec); err != nil {
		return err
	}
	ms.rows[rec.Kind()][rec.GetId()] = clone(rec)
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, kind model.Kind, id int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.rows[kind][id]; !ok {
		return errors.Wrapf(ErrNotFound, "%s %d", kind, id)
	}
	delete(ms.rows[kind], id)

	//same as ON DELETE SET NULL on lights.customer_id
	if kind == model.KindCustomer {
		for _, rec := range ms.rows[model.KindLight] {
			l := rec.(*model.Light)
			if l.CustomerId != nil && *l.CustomerId == id {
				l.CustomerId = nil
			}
		}
	}
	return nil
}

func (ms *MemoryStore) List(ctx context.Context, kind model.Kind) ([]model.GeoRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.collect(kind, func(model.GeoRecord) bool { return true }), nil
}

func (ms *MemoryStore) Filter(ctx context.Context, kind model.Kind, field string, value string) ([]model.GeoRecord, error) {
	f, err := model.LookupField(kind, field)
	if err != nil {
		return nil, err
	}
	arg, ok := filterArg(f, value)
	if !ok {
		return []model.GeoRecord{}, nil
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.collect(kind, func(rec model.GeoRecord) bool {
		return model.Value(rec, f.Name) == arg
	}), nil
}

func (ms *MemoryStore) collect(kind model.Kind, keep func(model.GeoRecord) bool) []model.GeoRecord {
	out := make([]model.GeoRecord, 0, len(ms.rows[kind]))
	for _, rec := range ms.rows[kind] {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetId() < out[j].GetId() })
	return out
}

//checkReferences is the lights.customer_id foreign key
func (ms *MemoryStore) checkReferences(rec model.GeoRecord) error {
	l, ok := rec.(*model.Light)
	if !ok || l.CustomerId == nil {
		return nil
	}
	if _, ok := ms.rows[model.KindCustomer][*l.CustomerId]; !ok {
		return errors.Wrapf(ErrInvalidValue, "customer %d does not exist", *l.CustomerId)
	}
	return nil
}

//clone copies a record so callers never alias what the store holds
func clone(rec model.GeoRecord) model.GeoRecord {
	switch r := rec.(type) {
	case *model.Customer:
		c := *r
		return &c
	case *model.Light:
		l := *r
		if r.CustomerId != nil {
			id := *r.CustomerId
			l.CustomerId = &id
		}
		return &l
	}
	return rec
}
