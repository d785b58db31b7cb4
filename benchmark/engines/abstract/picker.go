package engine

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

const (
	firstStartYear = 1980
	lastStartYear  = 2021
)

// Picker selects the olympiads the write operations target. Update draws from the whole
// [Min, Max] range, delete skips the protected ids so the read probes always exist.
type Picker struct {
	mu        sync.Mutex
	rng       *rand.Rand
	min       int64
	max       int64
	protected map[int64]struct{}
}

func NewPicker(rng *rand.Rand, min, max int64, protected ...int64) *Picker {
	p := &Picker{rng: rng, min: min, max: max, protected: map[int64]struct{}{}}
	for _, id := range protected {
		p.protected[id] = struct{}{}
	}
	return p
}

func (p *Picker) Range() (int64, int64) {
	return p.min, p.max
}

// Protect excludes more ids from DeleteTarget.
func (p *Picker) Protect(ids ...int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.protected[id] = struct{}{}
	}
}

// Protected returns the protected ids, sorted.
func (p *Picker) Protected() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.protected))
	for id := range p.protected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UpdateTarget returns a uniformly random id in [Min, Max].
func (p *Picker) UpdateTarget() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + p.rng.Int63n(p.max-p.min+1)
}

// DeleteTarget returns a uniformly random id in [Min, Max] that is not protected.
// ok is false when every id of the range is protected.
func (p *Picker) DeleteTarget() (id int64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	candidates := make([]int64, 0, p.max-p.min+1)
	for id := p.min; id <= p.max; id++ {
		if _, skip := p.protected[id]; !skip {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[p.rng.Intn(len(candidates))], true
}

// StartDate returns January 1st of a random year in [1980, 2021].
func (p *Picker) StartDate() time.Time {
	p.mu.Lock()
	year := firstStartYear + p.rng.Intn(lastStartYear-firstStartYear+1)
	p.mu.Unlock()
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
