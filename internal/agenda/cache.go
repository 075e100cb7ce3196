package agenda

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// MonthCache memoizes Month results. Entries are keyed by the store revision
// the appointments were read at, so a mutation naturally misses the cache.
type MonthCache struct {
	cache *ristretto.Cache
}

// NewMonthCache creates a cache holding roughly maxMonths resolved months.
func NewMonthCache(maxMonths int64) (*MonthCache, error) {
	if maxMonths <= 0 {
		maxMonths = 64
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxMonths * 10,
		MaxCost:            maxMonths,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("NewMonthCache: creating cache: %w", err)
	}
	return &MonthCache{cache: c}, nil
}

// Month returns the cached month for revision, resolving and storing it on a
// miss. Callers get their own copy and may modify it.
func (m *MonthCache) Month(revision uint64, appts []domain.Appointment, year int, month time.Month) MonthView {
	key := fmt.Sprintf("%d:%04d-%02d", revision, year, int(month))
	if v, ok := m.cache.Get(key); ok {
		if mv, ok := v.(MonthView); ok {
			return mv.Clone()
		}
	}
	mv := Month(appts, year, month)
	m.cache.Set(key, mv, 1)
	return mv.Clone()
}

// Wait blocks until pending writes are visible to Get.
func (m *MonthCache) Wait() {
	m.cache.Wait()
}

// Close stops the cache's background goroutines.
func (m *MonthCache) Close() {
	m.cache.Close()
}
