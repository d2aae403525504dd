package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type entry[F any] struct {
	Priority int
	Factory  F
}

// factoryRegistry keeps at most one factory per concrete type.
type factoryRegistry[F any] struct {
	locker  sync.Mutex
	entries map[reflect.Type]entry[F]
}

func (r *factoryRegistry[F]) register(priority int, factory F) {
	t := reflect.ValueOf(factory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	if r.entries == nil {
		r.entries = map[reflect.Type]entry[F]{}
	}
	if _, ok := r.entries[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of type %v", t))
	}
	r.entries[t] = entry[F]{
		Priority: priority,
		Factory:  factory,
	}
}

// sorted returns the factories, the highest priority first.
func (r *factoryRegistry[F]) sorted() []F {
	r.locker.Lock()
	entries := make([]entry[F], 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.locker.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})

	result := make([]F, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Factory)
	}
	return result
}
