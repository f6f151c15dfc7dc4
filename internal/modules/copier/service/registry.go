package service

import "sync"

// FillRegistry — множество уже обработанных ключей сделок.
// max=0: растёт без ограничений; иначе вытесняются самые старые ключи (FIFO).
type FillRegistry struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []string
	max    int
	unique int
}

func NewFillRegistry(max int) *FillRegistry {
	if max < 0 {
		max = 0
	}
	return &FillRegistry{seen: make(map[string]struct{}), max: max}
}

// MarkNew добавляет ключ и возвращает true, если его ещё не было.
func (r *FillRegistry) MarkNew(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	r.unique++

	if r.max > 0 {
		r.order = append(r.order, key)
		for len(r.order) > r.max {
			delete(r.seen, r.order[0])
			r.order = r.order[1:]
		}
	}
	return true
}

// Len — сколько ключей сейчас хранится.
func (r *FillRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Unique — сколько различных сделок принято за всё время жизни процесса.
func (r *FillRegistry) Unique() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unique
}
