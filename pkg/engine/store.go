package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// Keyspace addresses one database inside one namespace.
type Keyspace struct {
	NS string
	DB string
}

// Store persists records. Records are objects whose "id" field holds
// their models.RecordID. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, ks Keyspace, table string, id any) (map[string]any, bool, error)
	Put(ctx context.Context, ks Keyspace, table string, id any, record map[string]any) error
	Delete(ctx context.Context, ks Keyspace, table string, id any) error
	// Scan returns every record of table ordered by id.
	Scan(ctx context.Context, ks Keyspace, table string) ([]map[string]any, error)
	// Tables lists the tables of ks that hold at least one record.
	Tables(ctx context.Context, ks Keyspace) ([]string, error)
	// Clear removes every record of every keyspace.
	Clear(ctx context.Context) error
	Close() error
}

// IDKey encodes a record id into a string usable as a map or column key.
// Equal ids give equal keys.
func IDKey(id any) (string, error) {
	b, err := models.CborCodec{}.Marshal(normalize(id))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type memTable map[string]map[string]any

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	spaces map[Keyspace]map[string]memTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spaces: make(map[Keyspace]map[string]memTable)}
}

func (s *MemoryStore) Get(_ context.Context, ks Keyspace, table string, id any) (map[string]any, bool, error) {
	key, err := IDKey(id)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.spaces[ks][table][key]
	if !ok {
		return nil, false, nil
	}
	return cloneObject(rec), true, nil
}

func (s *MemoryStore) Put(_ context.Context, ks Keyspace, table string, id any, record map[string]any) error {
	key, err := IDKey(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tables, ok := s.spaces[ks]
	if !ok {
		tables = make(map[string]memTable)
		s.spaces[ks] = tables
	}
	tb, ok := tables[table]
	if !ok {
		tb = make(memTable)
		tables[table] = tb
	}
	tb[key] = cloneObject(record)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, ks Keyspace, table string, id any) error {
	key, err := IDKey(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tb, ok := s.spaces[ks][table]; ok {
		delete(tb, key)
		if len(tb) == 0 {
			delete(s.spaces[ks], table)
		}
	}
	return nil
}

func (s *MemoryStore) Scan(_ context.Context, ks Keyspace, table string) ([]map[string]any, error) {
	s.mu.RLock()
	tb := s.spaces[ks][table]
	records := make([]map[string]any, 0, len(tb))
	for _, rec := range tb {
		records = append(records, cloneObject(rec))
	}
	s.mu.RUnlock()

	sortRecords(records)
	return records, nil
}

func (s *MemoryStore) Tables(_ context.Context, ks Keyspace) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.spaces[ks]))
	for name := range s.spaces[ks] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spaces = make(map[Keyspace]map[string]memTable)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
