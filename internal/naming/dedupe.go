package naming

import (
	"fmt"
	"strings"
	"sync"
)

// Deduper hands out unique export names within one export run. A name that is
// already taken gets a "_dupN" suffix. Names that differ only in case count
// as taken, since they collide on case-insensitive filesystems. All methods
// are goroutine-safe.
type Deduper struct {
	mu       sync.Mutex
	taken    map[string]bool // lowercased
	counters map[string]int  // lowercased base name -> next dup counter
}

// NewDeduper creates a ready-to-use Deduper
func NewDeduper() *Deduper {
	return &Deduper{
		taken:    make(map[string]bool),
		counters: make(map[string]int),
	}
}

// Claim returns name if it is free, otherwise the first free "_dupN" variant
func (d *Deduper) Claim(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(name)
	if !d.taken[key] {
		d.taken[key] = true
		return name
	}

	counter := d.counters[key]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := fmt.Sprintf("%s_dup%d", name, counter)
		if k := strings.ToLower(candidate); !d.taken[k] {
			d.counters[key] = counter + 1
			d.taken[k] = true
			return candidate
		}
		counter++
	}
}
