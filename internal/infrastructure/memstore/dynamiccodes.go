package memstore

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
)

// DynamicCodeRepo keeps one pending code per owner in memory. Entries are
// indexed by expiry so a sweeper can drop them once they lapse.
type DynamicCodeRepo struct {
	mu      sync.Mutex
	records map[string]domain.DynamicCode
	expiry  expiryHeap
	clock   clock.Clocker
	wake    chan struct{}
}

func NewDynamicCodeRepo(clk clock.Clocker) *DynamicCodeRepo {
	return &DynamicCodeRepo{
		records: make(map[string]domain.DynamicCode),
		clock:   clk,
		wake:    make(chan struct{}, 1),
	}
}

// Put replaces any record held for c.OwnerID. The ttl is carried by
// c.ExpiresAt.
func (r *DynamicCodeRepo) Put(ctx context.Context, c *domain.DynamicCode, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.records[c.OwnerID] = *c
	heap.Push(&r.expiry, expiryEntry{ownerID: c.OwnerID, hashedCode: c.HashedCode, expiresAt: c.ExpiresAt})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

func (r *DynamicCodeRepo) Get(ctx context.Context, ownerID string) (*domain.DynamicCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[ownerID]
	if !ok {
		return nil, fmt.Errorf("dynamic code: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// DeleteIf removes the owner's record only while it still holds hashedCode.
func (r *DynamicCodeRepo) DeleteIf(ctx context.Context, ownerID, hashedCode string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.records[ownerID]
	if !ok || c.HashedCode != hashedCode {
		return false, nil
	}
	delete(r.records, ownerID)
	return true, nil
}

// Len returns the number of records currently held.
func (r *DynamicCodeRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Run sweeps expired records until ctx is cancelled.
func (r *DynamicCodeRepo) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		r.sweep(r.clock.Now())

		wait, ok := r.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if ok {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-timer.C:
		}
	}
}

func (r *DynamicCodeRepo) nextWait() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expiry.Len() == 0 {
		return 0, false
	}
	d := r.expiry[0].expiresAt.Sub(r.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// sweep drops every record whose expiry is at or before now. Heap entries
// left behind by a superseded record are discarded without touching the
// newer one.
func (r *DynamicCodeRepo) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for r.expiry.Len() > 0 && !now.Before(r.expiry[0].expiresAt) {
		e := heap.Pop(&r.expiry).(expiryEntry)
		c, ok := r.records[e.ownerID]
		if !ok || c.HashedCode != e.hashedCode || !c.ExpiresAt.Equal(e.expiresAt) {
			continue
		}
		delete(r.records, e.ownerID)
		removed++
	}
	if removed > 0 {
		slog.Debug("swept expired dynamic codes", "count", removed)
	}
	return removed
}

type expiryEntry struct {
	ownerID    string
	hashedCode string
	expiresAt  time.Time
}

type expiryHeap []expiryEntry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)        { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
