package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KarenYumi/OrganizationApp/internal/telemetry"
)

var storeTracer = otel.Tracer("repository/filestore")

// Option настраивает файловое хранилище
type Option func(*options)

type options struct {
	locker  Locker
	metrics *telemetry.StoreMetrics
}

// WithLocker заменяет локальный locker, например на RedisLocker
func WithLocker(l Locker) Option { return func(o *options) { o.locker = l } }

// WithMetrics пишет метрики каждого чтения и перезаписи
func WithMetrics(m *telemetry.StoreMetrics) Option { return func(o *options) { o.metrics = m } }

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewMutexLocker()
	}
	return o
}

// jsonFile один JSON-массив T на диске. Чтение загружает файл целиком,
// каждая мутация перезаписывает его.
type jsonFile[T any] struct {
	path    string
	name    string
	locker  Locker
	metrics *telemetry.StoreMetrics
}

func newJSONFile[T any](path string, o options) (*jsonFile[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &jsonFile[T]{
		path:    path,
		name:    filepath.Base(path),
		locker:  o.locker,
		metrics: o.metrics,
	}, nil
}

// load читает все записи. Отсутствующий или пустой файл это пустой набор.
func (f *jsonFile[T]) load(ctx context.Context) (out []T, err error) {
	ctx, span := storeTracer.Start(ctx, "load "+f.name,
		trace.WithAttributes(attribute.String("file", f.path)))
	start := time.Now()
	defer func() {
		f.metrics.Record(ctx, f.name, "load", start, err)
		endSpan(span, err)
	}()
	return f.read()
}

func (f *jsonFile[T]) read() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// update выполняет read -> fn -> write под блокировкой файла. Если fn
// вернула ошибку, ничего не пишется.
func (f *jsonFile[T]) update(ctx context.Context, op string, fn func(records []T) ([]T, error)) (err error) {
	ctx, span := storeTracer.Start(ctx, op+" "+f.name,
		trace.WithAttributes(attribute.String("file", f.path)))
	start := time.Now()
	defer func() {
		f.metrics.Record(ctx, f.name, op, start, err)
		endSpan(span, err)
	}()

	unlock, err := f.locker.Lock(ctx, f.path)
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.name, err)
	}
	defer unlock()

	records, err := f.read()
	if err != nil {
		return err
	}
	records, err = fn(records)
	if err != nil {
		return err
	}
	return f.write(records)
}

// write атомарно заменяет файл через временный файл в том же каталоге
func (f *jsonFile[T]) write(records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), f.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", f.name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.name, err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	// not-found and conflicts are expected outcomes, not span errors
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
