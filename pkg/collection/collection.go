// Package collection is the domain layer: it maps CRUD intents onto the
// ordered-store primitives, assigns identifiers, and emits one change
// event per successful mutation.
//
// A resource's id doubles as its score in the underlying set. That
// equivalence (score == id, always) is what makes ids stable handles:
// point lookups go through the score interval [id, id] and never through
// rank, which drifts as earlier members are deleted.
package collection

import (
	"encoding/json"
	"fmt"
	"net/http"

	"copacabana/pkg/keys"
	"copacabana/pkg/logger"
	"copacabana/pkg/models"
	"copacabana/pkg/store"
)

// Broadcaster delivers a change event to the subscribers of a namespace.
// Implementations must not block the storage path and must never surface
// delivery failures to the caller.
type Broadcaster interface {
	Publish(namespace string, ev models.ChangeEvent)
}

// NopBroadcaster is the broadcaster used when real-time delivery is
// administratively disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, models.ChangeEvent) {}

// Store exposes the CRUD operations over caller-defined collections.
type Store struct {
	alloc  Allocator
	events Broadcaster
}

// New returns a collection store publishing through events. A nil events
// disables broadcasting.
func New(events Broadcaster) *Store {
	if events == nil {
		events = NopBroadcaster{}
	}
	return &Store{events: events}
}

// List returns every resource in the collection in ascending id order.
// A never-written collection lists as empty, not as an error.
func (s *Store) List(namespace, collection string) ([]models.Resource, error) {
	set, err := keys.Collection(namespace, collection)
	if err != nil {
		return nil, ErrInvalidName
	}
	raws, err := store.ZRangeByRank(set, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", set, err)
	}
	out := make([]models.Resource, 0, len(raws))
	for _, b := range raws {
		r, perr := models.ParseResource(b)
		if perr != nil {
			return nil, fmt.Errorf("corrupt resource in %s: %w", set, perr)
		}
		out = append(out, r)
	}
	return out, nil
}

// Get returns the resource whose score equals id, or ErrNotFound.
func (s *Store) Get(namespace, collection string, id int64) (models.Resource, error) {
	set, err := keys.Collection(namespace, collection)
	if err != nil {
		return nil, ErrInvalidName
	}
	raws, err := store.ZRangeByScore(set, id, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", set, id, err)
	}
	if len(raws) == 0 {
		return nil, ErrNotFound
	}
	return models.ParseResource(raws[0])
}

// Create assigns a fresh id, stores the resource at score == id and emits
// a POST event. The returned resource carries the assigned id.
func (s *Store) Create(namespace, collection, token string, res models.Resource) (models.Resource, error) {
	set, err := keys.Collection(namespace, collection)
	if err != nil {
		return nil, ErrInvalidName
	}
	if !res.Valid() {
		return nil, ErrInvalidResource
	}
	id, err := s.alloc.Next(namespace, collection)
	if err != nil {
		return nil, fmt.Errorf("allocate id for %s: %w", set, err)
	}
	res.SetID(id)
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	if err := store.ZAdd(set, id, b); err != nil {
		// The allocated id stays burned; see Allocator.
		return nil, fmt.Errorf("insert %s/%d: %w", set, id, err)
	}
	logger.Info("resource_created", "set", set, "id", id)
	s.publish(namespace, http.MethodPost, token, collection, res)
	return res, nil
}

// Update replaces the resource at id with the given payload, keeping
// score == id. The payload's id field is forced to the path id. The
// remove-then-reinsert pair is two atomic primitives, not one: a delete
// of the same id racing in between can be resurrected. Accepted
// last-writer-wins hazard, safe only because the score never changes.
func (s *Store) Update(namespace, collection string, id int64, token string, res models.Resource) (models.Resource, error) {
	set, err := keys.Collection(namespace, collection)
	if err != nil {
		return nil, ErrInvalidName
	}
	if !res.Valid() {
		return nil, ErrInvalidResource
	}
	existing, err := store.ZRangeByScore(set, id, id)
	if err != nil {
		return nil, fmt.Errorf("lookup %s/%d: %w", set, id, err)
	}
	if len(existing) == 0 {
		return nil, ErrNotFound
	}
	if _, err := store.ZRemRangeByScore(set, id, id); err != nil {
		return nil, fmt.Errorf("replace %s/%d: %w", set, id, err)
	}
	res.SetID(id)
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	if err := store.ZAdd(set, id, b); err != nil {
		return nil, fmt.Errorf("reinsert %s/%d: %w", set, id, err)
	}
	logger.Info("resource_updated", "set", set, "id", id)
	s.publish(namespace, http.MethodPut, token, collection, res)
	return res, nil
}

// Delete removes the resource at id. Existence is confirmed first so an
// absent id reports ErrNotFound rather than succeeding idempotently.
// Deleted ids are never reclaimed; lists keep the gap.
func (s *Store) Delete(namespace, collection string, id int64, token string) error {
	set, err := keys.Collection(namespace, collection)
	if err != nil {
		return ErrInvalidName
	}
	existing, err := store.ZRangeByScore(set, id, id)
	if err != nil {
		return fmt.Errorf("lookup %s/%d: %w", set, id, err)
	}
	if len(existing) == 0 {
		return ErrNotFound
	}
	if _, err := store.ZRemRangeByScore(set, id, id); err != nil {
		return fmt.Errorf("remove %s/%d: %w", set, id, err)
	}
	logger.Info("resource_deleted", "set", set, "id", id)
	// The payload is gone; the event carries the removed id.
	s.publish(namespace, http.MethodDelete, token, collection, models.Resource{models.IDField: id})
	return nil
}

// publish emits exactly one event after a committed mutation. It runs
// synchronously in call order but delivery is fire-and-forget inside the
// broadcaster; it never affects the mutation's outcome.
func (s *Store) publish(namespace, method, token, collection string, data models.Resource) {
	s.events.Publish(namespace, models.ChangeEvent{
		Method:     method,
		Token:      token,
		Collection: collection,
		Data:       data,
	})
}
