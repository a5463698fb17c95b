package requestlog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
)

// ArchivedRecord is the database row a finalized Record flattens into.
type ArchivedRecord struct {
	ID         string `gorm:"primaryKey"`
	RetryOf    string `gorm:"index"`
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string `gorm:"index"`

	Profile     string
	SttProvider string
	SttModel    string
	LlmProvider string
	LlmModel    string

	Skipped       bool
	SkipReason    string
	RawTranscript string
	FinalText     string
	ErrorMessage  string

	RecordingMs int64
	SttMs       int64
	LlmMs       int64

	RawSttRequest  []byte
	RawSttResponse []byte
	RawLlmRequest  []byte
	RawLlmResponse []byte
}

func (ArchivedRecord) TableName() string { return "request_records" }

// ArchiveStore persists finalized records to the database so diagnostics
// survive restarts; the in-memory Log stays the hot path.
type ArchiveStore struct {
	db *gorm.DB
}

func NewArchiveStore(db *gorm.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

func (s *ArchiveStore) Migrate() error {
	return s.db.AutoMigrate(&ArchivedRecord{})
}

func (s *ArchiveStore) Archive(ctx context.Context, rec *Record) error {
	row := &ArchivedRecord{
		ID:             rec.ID,
		RetryOf:        rec.RetryOf,
		StartedAt:      rec.StartedAt,
		Status:         string(rec.Status),
		Profile:        rec.Profile,
		SttProvider:    rec.SttProvider,
		SttModel:       rec.SttModel,
		LlmProvider:    rec.LlmProvider,
		LlmModel:       rec.LlmModel,
		Skipped:        rec.Skipped,
		SkipReason:     rec.SkipReason,
		RawTranscript:  rec.RawTranscript,
		FinalText:      rec.FinalText,
		ErrorMessage:   rec.ErrorMessage,
		RecordingMs:    rec.RecordingMs,
		SttMs:          rec.SttMs,
		LlmMs:          rec.LlmMs,
		RawSttRequest:  rec.RawSttRequest,
		RawSttResponse: rec.RawSttResponse,
		RawLlmRequest:  rec.RawLlmRequest,
		RawLlmResponse: rec.RawLlmResponse,
	}
	if rec.FinishedAt != nil {
		row.FinishedAt = *rec.FinishedAt
	}
	return s.db.WithContext(ctx).Save(row).Error
}

func (s *ArchiveStore) GetByID(ctx context.Context, id string) (*ArchivedRecord, error) {
	var row ArchivedRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &row, err
}

func (s *ArchiveStore) ListRecent(ctx context.Context, limit int) ([]*ArchivedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []*ArchivedRecord
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
