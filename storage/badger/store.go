package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// DocumentStore implements storage.Store for BadgerDB.
//
// Writers are serialized so unique index checks and index maintenance see a
// consistent view; readers run concurrently in read-only transactions.
type DocumentStore struct {
	backend    *Backend
	ownBackend bool

	mu      sync.RWMutex // guards indexes and loaded
	indexes map[string]storage.IndexOptions
	loaded  bool

	writeMu sync.Mutex

	timestamps bool
	newID      func() string
	now        func() time.Time
	logger     *slog.Logger
}

var _ storage.Store = (*DocumentStore)(nil)

// Option configures a DocumentStore.
type Option func(*DocumentStore)

// WithTimestamps makes the store maintain createdAt and updatedAt fields.
func WithTimestamps(enabled bool) Option {
	return func(s *DocumentStore) {
		s.timestamps = enabled
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *DocumentStore) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithIDGenerator replaces the generator used for documents inserted
// without an _id.
func WithIDGenerator(fn func() string) Option {
	return func(s *DocumentStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewDocumentStore creates a store on an open backend.
// The caller keeps ownership of the backend.
func NewDocumentStore(backend *Backend, opts ...Option) *DocumentStore {
	s := &DocumentStore{
		backend: backend,
		indexes: make(map[string]storage.IndexOptions),
		newID:   uuid.NewString,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenStore opens a backend at filePath (or in memory) and creates a store
// that owns it: closing the store closes the backend.
func OpenStore(filePath string, inMemory bool, opts ...Option) (*DocumentStore, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}
	s := NewDocumentStore(backend, opts...)
	s.ownBackend = true
	return s, nil
}

// Backend returns the underlying backend.
func (s *DocumentStore) Backend() *Backend {
	return s.backend
}

// Close closes the backend when the store owns it.
func (s *DocumentStore) Close() error {
	if !s.ownBackend || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// Load reads persisted index definitions. Subsequent calls are no-ops.
func (s *DocumentStore) Load(ctx context.Context) error {
	return s.ready(ctx)
}

// ready checks the store is usable and loads it on first use.
func (s *DocumentStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	metas, err := loadIndexMetas(s.backend)
	if err != nil {
		return fmt.Errorf("load index definitions: %w", err)
	}
	for _, meta := range metas {
		s.indexes[meta.FieldName] = storage.IndexOptions{FieldName: meta.FieldName, Unique: meta.Unique}
	}
	s.loaded = true
	s.logger.Debug("document store loaded", "indexes", len(metas))
	return nil
}

// Insert stores a copy of doc and returns the stored version.
func (s *DocumentStore) Insert(ctx context.Context, doc core.Document) (core.Document, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	normalized, err := storage.NormalizeDocument(doc)
	if err != nil {
		return nil, err
	}
	if normalized == nil {
		normalized = core.Document{}
	}
	if err := storage.CheckKeys(normalized); err != nil {
		return nil, err
	}

	if raw, ok := normalized[core.IDField]; ok {
		if id, isString := raw.(string); !isString || id == "" {
			return nil, fmt.Errorf("%w: _id must be a non-empty string", storage.ErrFieldName)
		}
	} else {
		normalized[core.IDField] = s.newID()
	}

	now := s.now().UTC()
	if s.timestamps {
		stamp := now.Format(time.RFC3339Nano)
		if _, ok := normalized["createdAt"]; !ok {
			normalized["createdAt"] = stamp
		}
		normalized["updatedAt"] = stamp
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	indexes := s.indexSnapshot()
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(normalized.ID())
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, normalized.ID())
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := indexDocument(tx, indexes, normalized); err != nil {
			return err
		}
		if err := writeDocument(tx, normalized, now); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return normalized.Clone(), nil
}

// Update applies update to documents matching query.
func (s *DocumentStore) Update(ctx context.Context, query, update core.Document, opts storage.UpdateOptions) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	indexes := s.indexSnapshot()
	limit := 1
	if opts.Multi {
		limit = 0
	}

	updated := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		docs, err := scanDocuments(ctx, tx, indexes, query, limit)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		for _, old := range docs {
			modified, err := storage.Modify(old, update)
			if err != nil {
				return err
			}
			if s.timestamps {
				if created, ok := old["createdAt"]; ok {
					if _, kept := modified["createdAt"]; !kept {
						modified["createdAt"] = created
					}
				}
				modified["updatedAt"] = now.Format(time.RFC3339Nano)
			}
			modified, err = storage.NormalizeDocument(modified)
			if err != nil {
				return err
			}

			if err := unindexDocument(tx, indexes, old); err != nil {
				return err
			}
			if err := indexDocument(tx, indexes, modified); err != nil {
				return err
			}
			if err := writeDocument(tx, modified, now); err != nil {
				return err
			}
			updated++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Remove deletes documents matching query.
func (s *DocumentStore) Remove(ctx context.Context, query core.Document, opts storage.RemoveOptions) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	indexes := s.indexSnapshot()
	limit := 1
	if opts.Multi {
		limit = 0
	}

	removed := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		docs, err := scanDocuments(ctx, tx, indexes, query, limit)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := unindexDocument(tx, indexes, doc); err != nil {
				return err
			}
			if err := tx.Delete(makeDocumentKey(doc.ID())); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Find returns documents matching q.
func (s *DocumentStore) Find(ctx context.Context, q storage.Query) ([]core.Document, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if q.Skip < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: negative skip or limit", storage.ErrInvalidQuery)
	}

	// Without sorting, stop scanning as soon as skip+limit results are found.
	scanLimit := 0
	if len(q.Sort) == 0 && q.Limit > 0 {
		scanLimit = q.Skip + q.Limit
	}

	indexes := s.indexSnapshot()
	var docs []core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		docs, err = scanDocuments(ctx, tx, indexes, q.Filter, scanLimit)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	if len(q.Sort) > 0 {
		sortDocuments(docs, q.Sort)
	}
	docs = page(docs, q.Skip, q.Limit)
	if len(q.Projection) > 0 {
		for i, doc := range docs {
			docs[i] = project(doc, q.Projection)
		}
	}
	return docs, nil
}

// FindOne returns the first document matching query.
func (s *DocumentStore) FindOne(ctx context.Context, query core.Document) (core.Document, error) {
	docs, err := s.Find(ctx, storage.Query{Filter: query, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, storage.ErrNotFound
	}
	return docs[0], nil
}

// Count returns the number of documents matching query.
func (s *DocumentStore) Count(ctx context.Context, query core.Document) (int, error) {
	docs, err := s.Find(ctx, storage.Query{Filter: query})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Helper methods

// writeDocument stores the record for doc.
func writeDocument(tx *badger.Txn, doc core.Document, updatedAt time.Time) error {
	rec, err := storage.EncodeDocument(doc, updatedAt)
	if err != nil {
		return err
	}
	return tx.Set(makeDocumentKey(rec.ID), storage.MarshalRecord(rec))
}

// readDocument reads a document from the transaction.
// Returns nil, nil if the document doesn't exist.
func readDocument(tx *badger.Txn, id string) (core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc core.Document
	err = item.Value(func(val []byte) error {
		return decodeValue(val, &doc)
	})
	return doc, err
}

func decodeValue(val []byte, doc *core.Document) error {
	rec, err := storage.UnmarshalRecord(val)
	if err != nil {
		return err
	}
	*doc, err = storage.DecodeDocument(rec)
	return err
}

// scanDocuments returns documents matching filter, in key order.
// A positive limit stops the scan once that many matches are found.
// An equality condition on an indexed field narrows the scan to the
// index entries for that value.
func scanDocuments(ctx context.Context, tx *badger.Txn, indexes map[string]storage.IndexOptions, filter core.Document, limit int) ([]core.Document, error) {
	var results []core.Document

	accept := func(doc core.Document) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ok, err := storage.Match(doc, filter)
		if err != nil {
			return false, err
		}
		if ok {
			results = append(results, doc)
		}
		return limit <= 0 || len(results) < limit, nil
	}

	ids, indexed, err := indexCandidates(tx, indexes, filter)
	if err != nil {
		return nil, err
	}

	if indexed {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				continue
			}
			more, err := accept(doc)
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
		return results, nil
	}

	err = scanPrefix(tx, makeDocumentScanPrefix(), true, func(_, value []byte) (bool, error) {
		var doc core.Document
		if err := decodeValue(value, &doc); err != nil {
			return false, err
		}
		return accept(doc)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func sortDocuments(docs []core.Document, fields []storage.SortField) {
	slices.SortStableFunc(docs, func(a, b core.Document) int {
		for _, f := range fields {
			av, aok := storage.GetField(a, f.Field)
			bv, bok := storage.GetField(b, f.Field)
			c := storage.CompareForSort(av, aok, bv, bok)
			if f.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func page(docs []core.Document, skip, limit int) []core.Document {
	if skip >= len(docs) {
		return []core.Document{}
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

func project(doc core.Document, fields []string) core.Document {
	out := core.Document{core.IDField: doc[core.IDField]}
	for _, f := range fields {
		if v, ok := storage.GetField(doc, f); ok {
			storage.SetField(out, f, v)
		}
	}
	return out
}
