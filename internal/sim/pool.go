package sim

import "sync"

// HistoryPool recycles position history buffers between batch runs.
type HistoryPool struct {
	pool     sync.Pool
	capacity int
}

func NewHistoryPool(capacity int) *HistoryPool {
	return &HistoryPool{
		capacity: capacity,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]HistoryItem, 0, capacity)
			},
		},
	}
}

func (p *HistoryPool) Get() []HistoryItem {
	return p.pool.Get().([]HistoryItem)[:0]
}

// Put returns h to the pool. Buffers smaller than the pool capacity are
// dropped.
func (p *HistoryPool) Put(h []HistoryItem) {
	if cap(h) >= p.capacity {
		p.pool.Put(h[:0])
	}
}
