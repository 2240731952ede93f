package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialhub/internal/observability"

	"gorm.io/gorm"
)

// SQLDocument is the row layout of the sql driver. Version increases on
// every write and guards optimistic updates.
type SQLDocument struct {
	ParentPath string    `gorm:"primaryKey;size:512"`
	DocKey     string    `gorm:"primaryKey;size:128"`
	Value      string    `gorm:"type:text;not null"`
	Version    int64     `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName pins the table name regardless of naming strategy.
func (SQLDocument) TableName() string { return "documents" }

type sqlDriver struct {
	db *gorm.DB
}

// NewSQLDriver returns a driver over a GORM connection (postgres or sqlite).
// The documents table must already exist; see database.AutoMigrate.
func NewSQLDriver(db *gorm.DB) Driver {
	return &sqlDriver{db: db}
}

// NewSQL returns a Store backed by NewSQLDriver.
func NewSQL(db *gorm.DB, opts ...Option) Store {
	return New(NewSQLDriver(db), opts...)
}

func (s *sqlDriver) Name() string { return "sql" }

func (s *sqlDriver) Read(ctx context.Context, parent, key string) ([]byte, error) {
	var row SQLDocument
	err := s.db.WithContext(ctx).
		Where("parent_path = ? AND doc_key = ?", parent, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Value), nil
}

func (s *sqlDriver) ReadAll(ctx context.Context, parent string) ([]Document, error) {
	var rows []SQLDocument
	err := s.db.WithContext(ctx).
		Where("parent_path = ?", parent).
		Order("doc_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(rows))
	for i, row := range rows {
		docs[i] = Document{Key: row.DocKey, Value: []byte(row.Value)}
	}
	return docs, nil
}

// Mutate reads the row with its version, applies fn, then writes back only if
// the version is unchanged. A lost race (zero rows affected, or a unique
// violation on insert) retries from the read.
func (s *sqlDriver) Mutate(ctx context.Context, parent, key string, fn func([]byte) ([]byte, error)) error {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			observability.StoreTxRetries.WithLabelValues(s.Name()).Inc()
		}

		var row SQLDocument
		err := db.Where("parent_path = ? AND doc_key = ?", parent, key).Take(&row).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var current []byte
		if exists {
			current = []byte(row.Value)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		switch {
		case !exists && next == nil:
			return nil

		case !exists:
			err := db.Create(&SQLDocument{
				ParentPath: parent,
				DocKey:     key,
				Value:      string(next),
				Version:    1,
				UpdatedAt:  time.Now().UTC(),
			}).Error
			if isUniqueConstraintError(err) {
				continue
			}
			if err != nil {
				return err
			}
			return nil

		case next == nil:
			res := db.Where("parent_path = ? AND doc_key = ? AND version = ?", parent, key, row.Version).
				Delete(&SQLDocument{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			return nil

		default:
			res := db.Model(&SQLDocument{}).
				Where("parent_path = ? AND doc_key = ? AND version = ?", parent, key, row.Version).
				Updates(map[string]any{
					"value":      string(next),
					"version":    row.Version + 1,
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			return nil
		}
	}
	return fmt.Errorf("%s/%s: %w", parent, key, ErrTxConflict)
}

func (s *sqlDriver) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *sqlDriver) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
