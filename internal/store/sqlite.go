package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"xray-annotator/internal/annotation"
)

// studyRecord is one saved annotation set. The collection travels as the
// same JSON payload the filesystem backend writes.
type studyRecord struct {
	ID        uint   `gorm:"primaryKey"`
	PatientID string `gorm:"uniqueIndex:idx_study,priority:1;not null"`
	ImageName string `gorm:"uniqueIndex:idx_study,priority:2;not null"`
	Payload   []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (studyRecord) TableName() string { return "studies" }

// SQLite stores studies in a single-file database.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the database and migrates the schema.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: sqlite dsn not set")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&studyRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, key Key, col []*annotation.Annotation) error {
	if err := key.validate(); err != nil {
		return err
	}
	if len(col) == 0 {
		return s.Delete(ctx, key)
	}
	payload, err := json.Marshal(col)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	rec := studyRecord{
		PatientID: key.PatientID,
		ImageName: key.ImageName,
		Payload:   payload,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}, {Name: "image_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, key Key) ([]*annotation.Annotation, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	var rec studyRecord
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND image_name = ?", key.PatientID, key.ImageName).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []*annotation.Annotation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	var col []*annotation.Annotation
	if err := json.Unmarshal(rec.Payload, &col); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return col, nil
}

func (s *SQLite) Images(ctx context.Context, patientID string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&studyRecord{}).
		Where("patient_id = ?", patientID).
		Order("image_name").
		Pluck("image_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", patientID, err)
	}
	return names, nil
}

func (s *SQLite) Delete(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND image_name = ?", key.PatientID, key.ImageName).
		Delete(&studyRecord{}).Error
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
