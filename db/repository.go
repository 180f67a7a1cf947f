package db

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"

	"attendance-server-go/models"
)

// DefaultMaxRecordBytes matches the usual browser local storage quota
const DefaultMaxRecordBytes = 5 * 1024 * 1024

// ClassRepository reads and writes one ClassRecord per class name.
// It keeps nothing in memory between calls.
type ClassRepository struct {
	store          KeyValueStore
	maxRecordBytes int
}

// NewClassRepository wraps store. A maxRecordBytes of 0 disables the per-record limit.
func NewClassRepository(store KeyValueStore, maxRecordBytes int) *ClassRepository {
	return &ClassRepository{store: store, maxRecordBytes: maxRecordBytes}
}

// Load returns the record for className. A missing, unreadable or invalid record
// yields a fresh empty one; load never fails. Use LoadForUpdate before a write.
func (r *ClassRepository) Load(ctx context.Context, className string) models.ClassRecord {
	rec, err := r.LoadForUpdate(ctx, className)
	if err != nil {
		slog.Warn("reading class data failed, starting empty", "class", className, "error", err)
		return models.NewClassRecord()
	}
	return rec
}

// LoadForUpdate is Load for read-modify-write callers. Missing or corrupt data
// still yields an empty record, but a failed store read returns ErrStorage so the
// caller never overwrites data it could not see.
func (r *ClassRepository) LoadForUpdate(ctx context.Context, className string) (models.ClassRecord, error) {
	data, found, err := r.store.Get(ctx, className)
	if err != nil {
		if errors.Is(err, ErrStorage) || IsQuotaExceeded(err) {
			return models.ClassRecord{}, errors.Wrapf(err, "reading class %q", className)
		}
		return models.ClassRecord{}, &storageError{cause: errors.Wrapf(err, "reading class %q", className)}
	}
	if !found {
		return models.NewClassRecord(), nil
	}

	var rec models.ClassRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		slog.Warn("class data is not valid JSON, starting empty", "class", className, "error", err)
		return models.NewClassRecord(), nil
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("class data failed validation, starting empty", "class", className, "error", err)
		return models.NewClassRecord(), nil
	}
	rec.Normalize()
	return rec, nil
}

// Save serializes rec and overwrites whatever was stored for className.
// Failures wrap ErrQuotaExceeded or ErrStorage; the stored value is unchanged on failure.
func (r *ClassRepository) Save(ctx context.Context, className string, rec models.ClassRecord) error {
	if className == "" {
		return &storageError{cause: errors.New("class name is empty")}
	}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return &storageError{cause: err}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &storageError{cause: errors.Wrap(err, "encoding class data")}
	}
	if r.maxRecordBytes > 0 && len(data) > r.maxRecordBytes {
		return errors.Wrapf(ErrQuotaExceeded, "class %q needs %d bytes, limit is %d", className, len(data), r.maxRecordBytes)
	}

	if err := r.store.Set(ctx, className, string(data)); err != nil {
		if IsQuotaExceeded(err) || errors.Is(err, ErrStorage) {
			return errors.Wrapf(err, "saving class %q", className)
		}
		return &storageError{cause: errors.Wrapf(err, "saving class %q", className)}
	}
	return nil
}

// ListClasses returns every class name that has been saved, sorted
func (r *ClassRepository) ListClasses(ctx context.Context) ([]string, error) {
	names, err := r.store.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing classes")
	}
	return names, nil
}
