package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/panjf2000/ants/v2"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/diachron/internal/space"
)

// ModelExt is the extension of a period model file.
const ModelExt = ".mod"

// TextExt is the extension of a model in word2vec text format.
const TextExt = ".vec"

// modelVariants lists the accepted file suffixes in lookup order.
var modelVariants = []string{ModelExt, ModelExt + ".gz", ModelExt + ".zst", ModelExt + ".lz4", TextExt}

// Loader reads period models from a root directory. A period label maps to
// <root>/<period>/<period>.mod, or to <root>/<period>.mod when there is no folder.
// Compressed siblings (.mod.gz, .mod.zst, .mod.lz4) and the text format (.vec) are
// accepted as well.
type Loader struct {
	root    string
	cache   *SpaceCache
	workers int
	logger  *zap.Logger
	group   singleflight.Group
	read    func(path, id string) (*space.Space, error)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCacheSize sets how many loaded spaces are kept in memory.
func WithCacheSize(n int) LoaderOption {
	return func(l *Loader) { l.cache = NewSpaceCache(n) }
}

// WithLoadWorkers sets the pool size used by LoadAll.
func WithLoadWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader over root.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:    root,
		cache:   NewSpaceCache(8),
		workers: max(1, runtime.NumCPU()/2),
		logger:  zap.NewNop(),
		read:    ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the models directory.
func (l *Loader) Root() string { return l.root }

// Cache exposes the loader's space cache.
func (l *Loader) Cache() *SpaceCache { return l.cache }

// Resolve returns the model file for period.
func (l *Loader) Resolve(period string) (string, error) {
	if err := validPeriod(period); err != nil {
		return "", space.NewNotFoundError(period, err)
	}
	bases := []string{
		filepath.Join(l.root, period, period),
		filepath.Join(l.root, period),
	}
	for _, base := range bases {
		for _, ext := range modelVariants {
			p := base + ext
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}
	return "", space.NewNotFoundError(filepath.Join(l.root, period, period+ModelExt), fs.ErrNotExist)
}

// Load returns the space for period, reading it from disk unless cached. Concurrent
// loads of the same period share one read.
func (l *Loader) Load(ctx context.Context, period string) (*space.Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sp, ok := l.cache.Get(period); ok {
		return sp, nil
	}
	v, err, _ := l.group.Do(period, func() (interface{}, error) {
		path, err := l.Resolve(period)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		sp, err := l.read(path, period)
		if err != nil {
			return nil, err
		}
		if sp == nil {
			return nil, fmt.Errorf("read %s: no space decoded", path)
		}
		l.logger.Debug("loaded period model",
			zap.String("period", period),
			zap.String("path", path),
			zap.Int("words", sp.Len()),
			zap.Int("dimension", sp.Dimension()),
			zap.Duration("elapsed", time.Since(start)))
		l.cache.Set(period, sp)
		return sp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*space.Space), nil
}

// LoadAll loads periods concurrently. Results keep the input order; the first error in
// that order is returned. A load that panics fails its period instead of leaving a nil
// space behind.
func (l *Loader) LoadAll(ctx context.Context, periods []string) ([]*space.Space, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no periods requested: %w", space.ErrNoData)
	}
	pool, err := ants.NewPool(min(l.workers, len(periods)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	out := make([]*space.Space, len(periods))
	errs := make([]error, len(periods))
	var wg sync.WaitGroup
	for i, period := range periods {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					out[i], errs[i] = nil, fmt.Errorf("model load panicked: %v", r)
				}
			}()
			out[i], errs[i] = l.Load(ctx, period)
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	for i, err := range errs {
		if err == nil && out[i] == nil {
			err = errors.New("no space returned")
		}
		if err != nil {
			return nil, fmt.Errorf("load period %q: %w", periods[i], err)
		}
	}
	return out, nil
}

// Evict drops period from the cache so the next Load reads it again.
func (l *Loader) Evict(period string) bool {
	ok := l.cache.Remove(period)
	if ok {
		l.logger.Debug("evicted period model", zap.String("period", period))
	}
	return ok
}

// Periods lists the periods available under the root, sorted.
func (l *Loader) Periods() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, space.NewNotFoundError(l.root, err)
		}
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if _, err := l.Resolve(name); err == nil {
				seen[name] = struct{}{}
			}
			continue
		}
		if period, ok := PeriodFromPath(name); ok {
			seen[period] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// PeriodFromPath extracts the period label from a model file name.
func PeriodFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	for _, ext := range modelVariants {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

// ReadFile reads a model file, picking the codec and compression from its extension.
func ReadFile(path, id string) (*space.Space, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, space.NewNotFoundError(path, err)
		}
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, TextExt) {
		return ReadWord2VecText(f, id)
	}
	r, closer, err := decompress(path, f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer closer()
	return ReadWord2Vec(r, id)
}

// WriteFile writes sp to path, compressing according to the extension. The text format is
// not written; .vec paths are rejected.
func WriteFile(path string, sp *space.Space) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := WriteWord2Vec(w, sp); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Create opens path for writing a binary model, creating parent directories. Writes are
// compressed according to the extension; Close flushes the compressor and the file.
func Create(path string) (io.WriteCloser, error) {
	if strings.HasSuffix(path, TextExt) {
		return nil, fmt.Errorf("writing %s files is not supported", TextExt)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, closeWriter, err := compress(path, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &modelWriter{Writer: w, closeWriter: closeWriter, file: f}, nil
}

type modelWriter struct {
	io.Writer
	closeWriter func() error
	file        *os.File
}

func (m *modelWriter) Close() error {
	if err := m.closeWriter(); err != nil {
		_ = m.file.Close()
		return err
	}
	return m.file.Close()
}

func decompress(path string, r io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case strings.HasSuffix(path, ".lz4"):
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

func compress(path string, w io.Writer) (io.Writer, func() error, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zw, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, nil, err
		}
		return enc, enc.Close, nil
	case strings.HasSuffix(path, ".lz4"):
		zw := lz4.NewWriter(w)
		return zw, zw.Close, nil
	default:
		return w, func() error { return nil }, nil
	}
}

func validPeriod(period string) error {
	if period == "" || period == "." || period == ".." || strings.ContainsAny(period, `/\`) {
		return fmt.Errorf("invalid period label %q", period)
	}
	return nil
}
