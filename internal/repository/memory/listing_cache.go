package memory

import (
	"sync"
	"time"

	"sharecycle-be/internal/dto"

	"github.com/patrickmn/go-cache"
)

// ListingCache keeps recent public listing pages keyed by normalized filters.
// Every Flush bumps the generation; pages read under an older generation are
// never stored.
type ListingCache struct {
	mu         sync.Mutex
	cache      *cache.Cache
	generation uint64
}

func NewListingCache(ttl time.Duration) *ListingCache {
	return &ListingCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

// Generation must be taken before the database is queried for a page.
func (r *ListingCache) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Save stores the page unless the cache was flushed after gen was taken.
func (r *ListingCache) Save(key string, gen uint64, page *dto.DonationListResponse) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return false
	}
	r.cache.Set(key, page, cache.DefaultExpiration)
	return true
}

func (r *ListingCache) Get(key string) (*dto.DonationListResponse, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(*dto.DonationListResponse), true
	}
	return nil, false
}

func (r *ListingCache) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.cache.Flush()
}

func (r *ListingCache) Len() int {
	return r.cache.ItemCount()
}
