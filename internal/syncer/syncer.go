// Package syncer pushes whole-collection snapshots from the canonical
// in-memory tables to the remote document store. Writes are queued and
// coalesced so the remote always receives the latest full snapshot of a
// collection: last-write-wins at collection granularity, never per record.
package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"atelier/backend/internal/docstore"
	"atelier/backend/internal/domain"
)

// Collections lists every synchronized collection of an account.
var Collections = []string{
	domain.CollectionSettings,
	domain.CollectionProducts,
	domain.CollectionClients,
	domain.CollectionBudgets,
	domain.CollectionSales,
	domain.CollectionMaterials,
	domain.CollectionPricings,
	domain.CollectionCounters,
}

// Snapshotter is the slice of the repository the syncer needs.
type Snapshotter interface {
	ExportCollection(ctx context.Context, accountID string, collection string) ([]byte, error)
	ImportCollection(ctx context.Context, accountID string, collection string, payload []byte) error
}

type target struct {
	accountID  string
	collection string
}

type Syncer struct {
	repo   Snapshotter
	remote docstore.Store

	mu      sync.Mutex
	blocked map[string]bool
	pending map[target]bool
	closed  bool

	queue chan target
	wg    sync.WaitGroup

	writeTimeout time.Duration
}

func New(repo Snapshotter, remote docstore.Store) *Syncer {
	s := &Syncer{
		repo:         repo,
		remote:       remote,
		blocked:      make(map[string]bool),
		pending:      make(map[target]bool),
		queue:        make(chan target, 256),
		writeTimeout: 10 * time.Second,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Enqueue schedules a snapshot write for one collection. It never blocks the
// caller: edits are accepted locally regardless of remote state. Writes for a
// blocked account are dropped until the account is rehydrated.
func (s *Syncer) Enqueue(accountID string, collection string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.blocked[accountID] {
		return
	}
	key := target{accountID: accountID, collection: collection}
	if s.pending[key] {
		return
	}

	// The send happens under the same lock that Close takes before closing
	// the channel, so Enqueue can never send on a closed queue.
	select {
	case s.queue <- key:
		s.pending[key] = true
	default:
		log.Printf("[syncer] WARN: queue full, dropping snapshot %s/%s", accountID, collection)
	}
}

// Blocked reports whether synchronization for the account has been halted by a
// permission denial from the remote store.
func (s *Syncer) Blocked(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[accountID]
}

func (s *Syncer) run() {
	defer s.wg.Done()
	for key := range s.queue {
		s.flush(key)
	}
}

func (s *Syncer) flush(key target) {
	s.mu.Lock()
	// Clear the pending mark before exporting so a mutation racing with this
	// write re-enqueues and the remote converges on the newest snapshot.
	delete(s.pending, key)
	if s.blocked[key.accountID] {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	payload, err := s.repo.ExportCollection(ctx, key.accountID, key.collection)
	if err != nil {
		log.Printf("[syncer] WARN: export %s/%s: %v", key.accountID, key.collection, err)
		return
	}

	if err := s.remote.WriteCollection(ctx, key.accountID, key.collection, payload); err != nil {
		if errors.Is(err, docstore.ErrPermissionDenied) {
			s.mu.Lock()
			s.blocked[key.accountID] = true
			s.mu.Unlock()
			log.Printf("[syncer] sync halted for account %s: %v", key.accountID, err)
			return
		}
		log.Printf("[syncer] WARN: write %s/%s: %v", key.accountID, key.collection, err)
	}
}

// Hydrate loads every collection of an account from the remote store into the
// canonical tables. Missing documents are skipped (fresh account). A
// successful hydrate clears a previous permission block; a denied read keeps
// the account blocked and is returned to the caller.
func (s *Syncer) Hydrate(ctx context.Context, accountID string) error {
	for _, collection := range Collections {
		payload, err := s.remote.ReadCollection(ctx, accountID, collection)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			if errors.Is(err, docstore.ErrPermissionDenied) {
				s.mu.Lock()
				s.blocked[accountID] = true
				s.mu.Unlock()
			}
			return err
		}
		if err := s.repo.ImportCollection(ctx, accountID, collection, payload); err != nil {
			return err
		}
	}

	s.mu.Lock()
	delete(s.blocked, accountID)
	s.mu.Unlock()
	return nil
}

// Close drains the queue and stops the worker. Enqueue calls arriving after
// Close are dropped; calling Close twice is a no-op.
func (s *Syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
