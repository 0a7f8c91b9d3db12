// Package catalog keeps the set of named table images a shredder service
// answers lookups from.
//
// Registrations are persisted in a pebble database so a restarted service
// serves the same tables. Images are opened lazily on first use and kept
// open until they are replaced, removed or the catalog is closed.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/ksuid"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/shredder/pkg/image"
)

// Catalog errors
var (
	ErrTableNotFound = errors.New("catalog: table not found")
	ErrInvalidName   = errors.New("catalog: invalid table name")
)

const (
	tablePrefix = "table/"
	tableEnd    = "table0" // '/'+1, sorts after every tablePrefix key
)

var validate = validator.New()

// Record describes a registered table image
type Record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Entries      uint32    `json:"entries"`
	Size         uint64    `json:"size"`
	Checksum     uint64    `json:"checksum"`
	Compression  string    `json:"compression"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Options controls how the catalog opens images
type Options struct {
	Image       image.OpenOptions
	Concurrency int // images loaded in parallel by OpenAll; 0 means 4
	Logger      *zap.Logger
}

// Catalog maps table names to image files
type Catalog struct {
	db     *pebble.DB
	opts   Options
	logger *zap.Logger

	mu     sync.RWMutex
	images map[string]*image.Image
}

// Open opens or creates the catalog database in dir.
func Open(dir string, opts Options) (*Catalog, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	opts.Image.Logger = opts.Logger

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	return &Catalog{
		db:     db,
		opts:   opts,
		logger: opts.Logger,
		images: make(map[string]*image.Image),
	}, nil
}

// ValidateName checks that name can be used as a table name
func ValidateName(name string) error {
	if err := validate.Var(name, "required,max=64,printascii,excludesall=/\\ "); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func tableKey(name string) []byte {
	return []byte(tablePrefix + name)
}

// Register opens the image at path to check it and records it under name,
// replacing any previous registration.
func (c *Catalog) Register(name, path string) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid image path: %w", err)
	}

	img, err := image.Open(absPath, c.opts.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	header := img.Header()
	record := &Record{
		ID:           ksuid.New().String(),
		Name:         name,
		Path:         absPath,
		Entries:      header.EntryCount,
		Size:         header.ImageSize,
		Checksum:     header.Checksum,
		Compression:  string(img.Compression()),
		RegisteredAt: time.Now().UTC(),
	}

	data, err := sonnet.Marshal(record)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := c.db.Set(tableKey(name), data, pebble.Sync); err != nil {
		img.Close()
		return nil, fmt.Errorf("failed to store record: %w", err)
	}

	c.mu.Lock()
	old := c.images[name]
	c.images[name] = img
	c.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Warn("failed to close replaced image", zap.String("table", name), zap.Error(err))
		}
	}

	c.logger.Info("table registered",
		zap.String("table", name),
		zap.String("id", record.ID),
		zap.String("path", absPath),
		zap.Uint32("entries", record.Entries))

	return record, nil
}

// Get returns the record registered under name
func (c *Catalog) Get(name string) (*Record, error) {
	data, closer, err := c.db.Get(tableKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	defer closer.Close()

	var record Record
	if err := sonnet.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", name, err)
	}
	return &record, nil
}

// List returns every record ordered by name
func (c *Catalog) List() ([]Record, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(tablePrefix),
		UpperBound: []byte(tableEnd),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer iter.Close()

	records := []Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		var record Record
		if err := sonnet.Unmarshal(iter.Value(), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", iter.Key(), err)
		}
		records = append(records, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Remove drops the registration for name and closes its image. The image
// file itself is left alone.
func (c *Catalog) Remove(name string) error {
	if _, err := c.Get(name); err != nil {
		return err
	}
	if err := c.db.Delete(tableKey(name), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	c.mu.Lock()
	img := c.images[name]
	delete(c.images, name)
	c.mu.Unlock()

	c.logger.Info("table removed", zap.String("table", name))
	if img != nil {
		return img.Close()
	}
	return nil
}

// View runs fn with the image registered under name, opening it if needed.
// The image stays valid for the duration of fn only; payload slices must not
// escape it.
func (c *Catalog) View(name string, fn func(img *image.Image) error) error {
	c.mu.RLock()
	img, ok := c.images[name]
	if ok {
		defer c.mu.RUnlock()
		return fn(img)
	}
	c.mu.RUnlock()

	if err := c.load(name); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok = c.images[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return fn(img)
}

func (c *Catalog) load(name string) error {
	record, err := c.Get(name)
	if err != nil {
		return err
	}

	img, err := image.Open(record.Path, c.opts.Image)
	if err != nil {
		return fmt.Errorf("failed to open table %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[name]; ok {
		return img.Close()
	}
	c.images[name] = img
	return nil
}

// OpenAll loads every registered image that is not open yet.
func (c *Catalog) OpenAll(ctx context.Context) error {
	records, err := c.List()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, record := range records {
		name := record.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.mu.RLock()
			_, ok := c.images[name]
			c.mu.RUnlock()
			if ok {
				return nil
			}
			return c.load(name)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("catalog loaded", zap.Int("tables", len(records)))
	return nil
}

// Loaded returns the names of the tables whose images are open
func (c *Catalog) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.images))
	for name := range c.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every open image and the catalog database
func (c *Catalog) Close() error {
	c.mu.Lock()
	var errs []error
	for name, img := range c.images {
		if err := img.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close table %s: %w", name, err))
		}
	}
	c.images = make(map[string]*image.Image)
	c.mu.Unlock()

	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close catalog: %w", err))
	}
	return errors.Join(errs...)
}
