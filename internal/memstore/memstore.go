// Package memstore is an in-memory directory backend with the same filter,
// paging and cascade semantics as the PostgreSQL one. It backs the "memory"
// database driver and the tests of the layers above it.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/internal/events"
	"github.com/rolodex-app/directory-services/models"
)

// record is a row held by a table.
type record struct {
	id      uuid.UUID
	created time.Time
	seq     int
	value   interface{}
	fields  map[string]string
}

type table struct {
	rows map[uuid.UUID]*record
}

func newTable() table { return table{rows: map[uuid.UUID]*record{}} }

// Store holds profiles, groups, memberships and insights in memory.
type Store struct {
	mu       sync.RWMutex
	seq      int
	profiles table
	groups   table
	members  table
	insights table
	events   events.Notifier
	clock    func() time.Time

	// Fail, when set, is consulted before every operation; a non-nil result
	// is returned instead of running it.
	Fail func(op string) error
}

func New(notifier events.Notifier) *Store {
	if notifier == nil {
		notifier = events.Discard{}
	}
	return &Store{
		profiles: newTable(),
		groups:   newTable(),
		members:  newTable(),
		insights: newTable(),
		events:   notifier,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(context.Context) error { return s.fail("ping") }

func (s *Store) Close() error {
	s.events.Close()
	return nil
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func (s *Store) notify(entity, action string, id uuid.UUID, owner string) {
	s.events.Notify(events.ChangeEvent{Entity: entity, Action: action, ID: id, Owner: owner, At: s.clock()})
}

func (s *Store) put(t table, id uuid.UUID, created time.Time, value interface{}, fields map[string]string) {
	if existing, ok := t.rows[id]; ok {
		existing.value = value
		existing.fields = fields
		return
	}
	s.seq++
	t.rows[id] = &record{id: id, created: created, seq: s.seq, value: value, fields: fields}
}

// list filters a table and applies the paging window, ordered by creation.
func list[T any](t table, opts models.ListOptions) ([]T, string, error) {
	offset, limit, err := opts.Window()
	if err != nil {
		return nil, "", err
	}

	matched := make([]*record, 0, len(t.rows))
	for _, r := range t.rows {
		ok, err := matches(r.fields, opts.Filter)
		if err != nil {
			return nil, "", err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].created.Equal(matched[j].created) {
			return matched[i].created.Before(matched[j].created)
		}
		return matched[i].seq < matched[j].seq
	})

	items := []T{}
	for i := offset; i < len(matched) && len(items) < limit; i++ {
		items = append(items, matched[i].value.(T))
	}
	token := ""
	if offset+limit < len(matched) {
		token = models.EncodePagingToken(offset + limit)
	}
	return items, token, nil
}

func matches(fields map[string]string, f models.Filter) (bool, error) {
	for _, c := range f.And {
		v, ok := fields[c.Field]
		if !ok {
			return false, fmt.Errorf("%w: cannot filter on field %q", models.ErrValidation, c.Field)
		}
		if v != c.Value {
			return false, nil
		}
	}
	return true, nil
}

func notFound(entity string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", entity, id, models.ErrNotFound)
}
