package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/plansync/internal/models"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpUpdate Op = "update"
	OpAdd    Op = "add"
	OpDelete Op = "delete"
	OpList   Op = "list"
	OpListen Op = "listen"
	OpCommit Op = "commit"
)

// FaultFunc decides whether an operation on path fails. Returning nil lets it proceed.
type FaultFunc func(op Op, path string) error

type memoryDoc struct {
	updatedAt time.Time
	fields    map[string]any
	path      models.DocumentPath
}

type listener struct {
	onSnapshot func([]models.Document)
	onError    func(error)
	collection string
}

// MemoryStore is an in-process Store. Snapshots are delivered synchronously,
// outside the store lock, by the goroutine that committed the write.
type MemoryStore struct {
	docs      map[string]*memoryDoc
	listeners map[int]*listener
	fault     FaultFunc
	now       func() time.Time
	mu        sync.Mutex
	nextID    int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]*memoryDoc),
		listeners: make(map[int]*listener),
		now:       time.Now,
	}
}

// SetFault installs fn as the fault hook; nil removes it.
func (m *MemoryStore) SetFault(fn FaultFunc) {
	m.mu.Lock()
	m.fault = fn
	m.mu.Unlock()
}

// Revoke terminates every subscription on collection with err, as a server does
// when access is withdrawn while listening.
func (m *MemoryStore) Revoke(collection models.CollectionPath, err error) {
	m.mu.Lock()
	var victims []*listener
	for id, l := range m.listeners {
		if l.collection == collection.String() {
			victims = append(victims, l)
			delete(m.listeners, id)
		}
	}
	m.mu.Unlock()

	for _, l := range victims {
		if l.onError != nil {
			l.onError(err)
		}
	}
}

// Listeners returns the number of active subscriptions.
func (m *MemoryStore) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

func (m *MemoryStore) checkFault(op Op, path string) error {
	m.mu.Lock()
	fault := m.fault
	m.mu.Unlock()
	if fault == nil {
		return nil
	}
	return fault(op, path)
}

// GetDocument implements Store.
func (m *MemoryStore) GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error) {
	if err := m.checkFault(OpGet, path.String()); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	out := doc.snapshot()
	return &out, nil
}

// CreateOrMergeDocument implements Store.
func (m *MemoryStore) CreateOrMergeDocument(ctx context.Context, path models.DocumentPath, fields map[string]any) error {
	if err := m.checkFault(OpSet, path.String()); err != nil {
		return err
	}
	m.mu.Lock()
	m.setLocked(path, fields, true)
	m.mu.Unlock()

	m.publish(path.Parent())
	return nil
}

// UpdateFields implements Store.
func (m *MemoryStore) UpdateFields(ctx context.Context, path models.DocumentPath, fields map[string]any) error {
	if err := m.checkFault(OpUpdate, path.String()); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.docs[path.String()]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	m.setLocked(path, fields, true)
	m.mu.Unlock()

	m.publish(path.Parent())
	return nil
}

// AddDocument implements Store.
func (m *MemoryStore) AddDocument(ctx context.Context, collection models.CollectionPath, fields map[string]any) (models.DocumentPath, error) {
	if err := m.checkFault(OpAdd, collection.String()); err != nil {
		return models.DocumentPath{}, err
	}
	path, err := collection.Doc(uuid.New().String())
	if err != nil {
		return models.DocumentPath{}, err
	}

	m.mu.Lock()
	m.setLocked(path, fields, false)
	m.mu.Unlock()

	m.publish(collection)
	return path, nil
}

// DeleteDocument implements Store.
func (m *MemoryStore) DeleteDocument(ctx context.Context, path models.DocumentPath) error {
	if err := m.checkFault(OpDelete, path.String()); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, path.String())
	m.mu.Unlock()

	m.publish(path.Parent())
	return nil
}

// ListDocuments implements Store.
func (m *MemoryStore) ListDocuments(ctx context.Context, collection models.CollectionPath) ([]models.Document, error) {
	if err := m.checkFault(OpList, collection.String()); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(collection), nil
}

// Subscribe implements Store. The current snapshot is delivered before Subscribe returns.
func (m *MemoryStore) Subscribe(ctx context.Context, collection models.CollectionPath, onSnapshot func([]models.Document), onError func(error)) (func(), error) {
	if err := m.checkFault(OpListen, collection.String()); err != nil {
		if onError != nil {
			onError(err)
		}
		return func() {}, nil
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = &listener{collection: collection.String(), onSnapshot: onSnapshot, onError: onError}
	docs := m.listLocked(collection)
	m.mu.Unlock()

	onSnapshot(docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}, nil
}

// NewBatch implements Store.
func (m *MemoryStore) NewBatch() Batch {
	return &memoryBatch{store: m}
}

func (m *MemoryStore) setLocked(path models.DocumentPath, fields map[string]any, merge bool) {
	key := path.String()
	doc, ok := m.docs[key]
	if !ok || !merge {
		doc = &memoryDoc{path: path, fields: make(map[string]any, len(fields))}
		m.docs[key] = doc
	}
	for k, v := range fields {
		doc.fields[k] = cloneValue(v)
	}
	doc.updatedAt = m.now()
}

func (m *MemoryStore) listLocked(collection models.CollectionPath) []models.Document {
	docs := make([]models.Document, 0)
	for _, doc := range m.docs {
		if collection.Contains(doc.path) {
			docs = append(docs, doc.snapshot())
		}
	}
	slices.SortFunc(docs, func(a, b models.Document) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return docs
}

// publish pushes a fresh snapshot to every listener of collection.
func (m *MemoryStore) publish(collection models.CollectionPath) {
	m.mu.Lock()
	var targets []*listener
	for _, l := range m.listeners {
		if l.collection == collection.String() {
			targets = append(targets, l)
		}
	}
	docs := m.listLocked(collection)
	m.mu.Unlock()

	for _, l := range targets {
		l.onSnapshot(cloneDocs(docs))
	}
}

func (d *memoryDoc) snapshot() models.Document {
	return models.Document{
		Path:      d.path,
		Fields:    cloneFields(d.fields),
		UpdatedAt: d.updatedAt,
	}
}

type memoryBatch struct {
	store  *MemoryStore
	writes []BatchWrite
}

func (b *memoryBatch) Set(path models.DocumentPath, fields map[string]any, merge bool) {
	b.writes = append(b.writes, BatchWrite{Path: path, Fields: fields, Merge: merge})
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	if err := b.store.checkFault(OpCommit, b.writes[0].Path.String()); err != nil {
		return err
	}

	b.store.mu.Lock()
	touched := make(map[string]models.CollectionPath)
	for _, w := range b.writes {
		b.store.setLocked(w.Path, w.Fields, w.Merge)
		parent := w.Path.Parent()
		touched[parent.String()] = parent
	}
	b.store.mu.Unlock()

	for _, c := range touched {
		b.store.publish(c)
	}
	return nil
}

func cloneDocs(docs []models.Document) []models.Document {
	out := make([]models.Document, len(docs))
	for i, d := range docs {
		out[i] = models.Document{Path: d.Path, Fields: cloneFields(d.Fields), UpdatedAt: d.UpdatedAt}
	}
	return out
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneFields(t)
	case models.Entity:
		return cloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
