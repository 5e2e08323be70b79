package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the row layout of the kv_entries table.
type Entry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Entry) TableName() string { return "kv_entries" }

// SQLStore persists values in a relational table through gorm.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *SQLStore) Save(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	entry := Entry{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *SQLStore) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	if value == nil {
		value = []byte{}
	}
	res := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where("entry_key = ?", key).
		Updates(map[string]any{"value": value, "updated_at": s.now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error
}
