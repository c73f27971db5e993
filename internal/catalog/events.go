package catalog

import (
	"sort"
	"sync"

	"github.com/bnema/buildctl/internal/addons"
)

// Event announces that a catalog changed. Listeners re-query the catalog.
type Event struct {
	Game addons.Game
	Kind addons.Kind
}

type observers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(Event)
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fns == nil {
		o.fns = make(map[int]func(Event))
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
		})
	}
}

// notify calls listeners in subscription order, outside the lock so a
// listener may unsubscribe or read the catalog
func (o *observers) notify(ev Event) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.fns))
	for id := range o.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
