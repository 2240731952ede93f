// Package store is the document store boundary used by every repository.
//
// Documents are addressed by slash-separated paths such as
// "posts/<postID>/likes/<userID>". The parent of a document is everything
// before its last segment; a collection lists only its direct children, so
// "posts" never returns like or comment documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"socialhub/internal/observability"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidPath is returned for empty paths or paths with empty segments.
	ErrInvalidPath = errors.New("store: invalid path")
	// ErrTxConflict is returned when an optimistic transaction keeps losing races.
	ErrTxConflict = errors.New("store: transaction conflict, retries exhausted")
)

// maxTxAttempts bounds optimistic retries per Transact call.
const maxTxAttempts = 32

// Document is one child of a collection.
type Document struct {
	Key   string
	Value json.RawMessage
}

// Decode unmarshals the document value into dest.
func (d Document) Decode(dest any) error {
	return json.Unmarshal(d.Value, dest)
}

// TxFunc receives the current raw value of a document (nil when absent) and
// returns the value to store. Returning a nil value deletes the document.
// It may be invoked more than once and must not keep state between calls.
type TxFunc func(current json.RawMessage) (any, error)

// Store is the document store used by repositories.
type Store interface {
	// Get decodes the document at path into dest and reports whether it exists.
	Get(ctx context.Context, path string, dest any) (bool, error)
	// Set replaces the document at path.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the document at path, creating it if absent.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	// Push stores value under a freshly generated child key of parent and returns the key.
	Push(ctx context.Context, parent string, value any) (string, error)
	// List returns the direct children of parent ordered by key.
	List(ctx context.Context, parent string) ([]Document, error)
	// Query returns the children of parent whose JSON field equals the given value.
	Query(ctx context.Context, parent, field, equals string) ([]Document, error)
	// Transact performs an atomic read-modify-write on a single document.
	Transact(ctx context.Context, path string, fn TxFunc) error
	// Ping checks connectivity to the backing driver.
	Ping(ctx context.Context) error
	// Close releases driver resources.
	Close() error
}

// Driver is the primitive set a backend provides. Document-level helpers
// (merge, push, query) are layered on top by New.
type Driver interface {
	Name() string
	// Read returns the raw value or nil when the document is absent.
	Read(ctx context.Context, parent, key string) ([]byte, error)
	// ReadAll returns every direct child of parent in any order.
	ReadAll(ctx context.Context, parent string) ([]Document, error)
	// Mutate atomically replaces a document with fn(current); a nil result deletes it.
	Mutate(ctx context.Context, parent, key string, fn func(current []byte) ([]byte, error)) error
	Ping(ctx context.Context) error
	Close() error
}

// Option configures a Store.
type Option func(*docStore)

// WithKeyFunc overrides child key generation for Push.
func WithKeyFunc(fn func() string) Option {
	return func(s *docStore) { s.newKey = fn }
}

// NewKey returns a time-ordered child key. Lexical order of keys follows
// creation order.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

type docStore struct {
	driver Driver
	newKey func() string
}

// New wraps a driver into a Store.
func New(driver Driver, opts ...Option) Store {
	s := &docStore{driver: driver, newKey: NewKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func validCollection(parent string) error {
	if parent == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	for _, seg := range strings.Split(parent, "/") {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, parent)
		}
	}
	return nil
}

// Split separates a document path into its parent collection and key.
func Split(path string) (parent, key string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	parent, key = path[:i], path[i+1:]
	if err := validCollection(parent); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return parent, key, nil
}

func (s *docStore) track(ctx context.Context, op, path string) (context.Context, func(error)) {
	done := observability.TrackStoreOperation(s.driver.Name(), op)
	ctx, span := observability.StartStoreSpan(ctx, s.driver.Name(), op, path)
	return ctx, func(err error) {
		if err != nil {
			observability.RecordErrorInContext(ctx, err)
		}
		span.End()
		done()
	}
}

func (s *docStore) Get(ctx context.Context, path string, dest any) (found bool, err error) {
	ctx, end := s.track(ctx, "get", path)
	defer func() { end(err) }()

	parent, key, err := Split(path)
	if err != nil {
		return false, err
	}
	raw, err := s.driver.Read(ctx, parent, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", path, err)
	}
	if raw == nil {
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return true, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return true, nil
}

func (s *docStore) Set(ctx context.Context, path string, value any) error {
	if value == nil {
		return fmt.Errorf("set %s: nil value", path)
	}
	return s.Transact(ctx, path, func(json.RawMessage) (any, error) {
		return value, nil
	})
}

func (s *docStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		merged := make(map[string]json.RawMessage)
		if current != nil {
			if err := json.Unmarshal(current, &merged); err != nil {
				return nil, fmt.Errorf("decode current value: %w", err)
			}
		}
		for k, v := range fields {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode field %s: %w", k, err)
			}
			merged[k] = raw
		}
		return merged, nil
	})
}

func (s *docStore) Delete(ctx context.Context, path string) error {
	return s.Transact(ctx, path, func(json.RawMessage) (any, error) {
		return nil, nil
	})
}

func (s *docStore) Push(ctx context.Context, parent string, value any) (string, error) {
	if err := validCollection(parent); err != nil {
		return "", err
	}
	key := s.newKey()
	if err := s.Set(ctx, Join(parent, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *docStore) List(ctx context.Context, parent string) (docs []Document, err error) {
	ctx, end := s.track(ctx, "list", parent)
	defer func() { end(err) }()

	if err := validCollection(parent); err != nil {
		return nil, err
	}
	docs, err = s.driver.ReadAll(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

func (s *docStore) Query(ctx context.Context, parent, field, equals string) ([]Document, error) {
	docs, err := s.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	matched := docs[:0]
	for _, d := range docs {
		res := gjson.GetBytes(d.Value, field)
		if res.Exists() && res.String() == equals {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func (s *docStore) Transact(ctx context.Context, path string, fn TxFunc) (err error) {
	ctx, end := s.track(ctx, "transact", path)
	defer func() { end(err) }()

	parent, key, err := Split(path)
	if err != nil {
		return err
	}
	err = s.driver.Mutate(ctx, parent, key, func(current []byte) ([]byte, error) {
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		if raw, ok := next.(json.RawMessage); ok {
			return raw, nil
		}
		return json.Marshal(next)
	})
	if err != nil {
		return fmt.Errorf("transact %s: %w", path, err)
	}
	return nil
}

func (s *docStore) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *docStore) Close() error {
	return s.driver.Close()
}
