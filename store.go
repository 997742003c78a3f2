package dtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/dtable/blobstore"
	"github.com/hupe1980/dtable/internal/resource"
)

const (
	// CurrentBlob names the pointer blob holding the name of the current table.
	CurrentBlob = "CURRENT"

	tablePrefix = "tables/"
	tableSuffix = ".dtbl"
)

// Store persists encoded tables in a blob store.
//
// Every Save writes a new immutable blob "tables/<version>.dtbl" and then
// moves the CURRENT pointer to it, so readers never observe a partially
// written table.
type Store struct {
	bs   blobstore.BlobStore
	opts options
	rc   *resource.Controller

	mu   sync.Mutex
	last int64
}

// NewStore creates a table store over bs.
func NewStore(bs blobstore.BlobStore, opts ...Option) *Store {
	o := applyOptions(opts)
	return &Store{
		bs:   bs,
		opts: o,
		rc:   resource.NewController(o.resources),
	}
}

// nextName returns a table name that sorts after every name this store
// handed out before.
func (s *Store) nextName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := max(time.Now().UnixNano(), s.last+1)
	s.last = v
	return fmt.Sprintf("%s%020d%s", tablePrefix, v, tableSuffix)
}

// Save encodes t, stores it under a new name and makes it current.
func (s *Store) Save(ctx context.Context, t *Table) (string, error) {
	name := s.nextName()

	start := time.Now()
	data, err := Encode(t, s.opts.encodeOptions...)
	if err == nil {
		err = s.bs.Put(ctx, name, data)
	}
	if err == nil {
		err = s.bs.Put(ctx, CurrentBlob, []byte(name))
	}
	elapsed := time.Since(start)

	s.opts.logger.LogSave(ctx, name, len(data), err)
	s.opts.metricsCollector.RecordEncode(len(data), elapsed, err)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return name, nil
}

// Load reads and decodes the named table.
func (s *Store) Load(ctx context.Context, name string) (*Table, error) {
	start := time.Now()
	data, release, err := s.read(ctx, name)

	var t *Table
	if err == nil {
		t, err = Decode(data)
		release()
	}
	elapsed := time.Since(start)

	s.opts.logger.LogLoad(ctx, name, len(data), err)
	s.opts.metricsCollector.RecordDecode(len(data), elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return t, nil
}

// LoadCurrent loads the table CURRENT points to. It returns ErrNoTable if
// nothing was saved yet.
func (s *Store) LoadCurrent(ctx context.Context) (*Table, string, error) {
	name, err := s.Current(ctx)
	if err != nil {
		return nil, "", err
	}
	t, err := s.Load(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return t, name, nil
}

// Current returns the name of the current table.
func (s *Store) Current(ctx context.Context) (string, error) {
	data, release, err := s.read(ctx, CurrentBlob)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrNoTable, err)
		}
		return "", err
	}
	name := strings.TrimSpace(string(data))
	release()

	if !strings.HasPrefix(name, tablePrefix) {
		return "", fmt.Errorf("%s points to %q: %w", CurrentBlob, name, ErrCorruptTable)
	}
	return name, nil
}

// List returns the names of all stored tables, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.bs.List(ctx, tablePrefix)
	if err != nil {
		return nil, err
	}
	names = slices.DeleteFunc(names, func(n string) bool {
		return !strings.HasSuffix(n, tableSuffix)
	})
	slices.Sort(names)
	return names, nil
}

// Prune deletes all but the newest keep tables. The current table is never
// deleted. It returns the number of deleted tables.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	current, err := s.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoTable) {
		return 0, err
	}

	deleted := 0
	for _, name := range names[:max(len(names)-max(keep, 0), 0)] {
		if name == current {
			continue
		}
		if err := s.bs.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// read returns the content of a blob. Memory-mapped blobs are used in place
// unless reads are rate-limited; release must be called once data is no
// longer referenced.
func (s *Store) read(ctx context.Context, name string) ([]byte, func(), error) {
	blob, err := s.bs.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	release := func() { _ = blob.Close() }

	if m, ok := blob.(blobstore.Mappable); ok && s.rc.IOLimit() == 0 {
		data, err := m.Bytes()
		if err != nil {
			release()
			return nil, nil, err
		}
		return data, release, nil
	}

	data, err := blobstore.ReadAll(ctx, blob, func(r io.Reader) io.Reader {
		return resource.NewRateLimitedReader(ctx, r, s.rc)
	})
	release()
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}
