// internal/repository/document_repo.go
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"team-calendar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a persisted calendar event, keyed by collection and id. The
// event itself is stored as its JSON document so the stored shape stays
// identical to what the stores exchange.
type Document struct {
	ID         string `gorm:"primaryKey;size:64"`
	Collection string `gorm:"primaryKey;size:128;index"`
	Payload    []byte `gorm:"not null"`
	ETag       int    `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Document) TableName() string {
	return "documents"
}

// Collection is the result of querying one named document collection.
type Collection struct {
	Name      string
	Documents []*models.CalendarEvent
}

// DocumentStore is the keyed document persistence consumed by the event
// stores. Collections follow the `{teamId}.{MM-YYYY}` bucket convention,
// plus the `{teamId}` and `{teamId}-categories` legacy buckets.
type DocumentStore interface {
	QueryCollectionsByName(names []string) ([]Collection, error)
	GetDocuments(collection string) ([]*models.CalendarEvent, error)
	CreateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error)
	UpdateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error)
	DeleteDocument(collection, id string) error
}

type GormDocumentStore struct {
	db *gorm.DB
}

func NewGormDocumentStore(db *gorm.DB) (DocumentStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}
	return &GormDocumentStore{db: db}, nil
}

func (r *GormDocumentStore) QueryCollectionsByName(names []string) ([]Collection, error) {
	result := make([]Collection, 0, len(names))
	for _, name := range names {
		docs, err := r.GetDocuments(name)
		if err != nil {
			return nil, err
		}
		result = append(result, Collection{Name: name, Documents: docs})
	}
	return result, nil
}

func (r *GormDocumentStore) GetDocuments(collection string) ([]*models.CalendarEvent, error) {
	var rows []Document
	err := r.db.Where("collection = ?", collection).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]*models.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		event, err := decodeDocument(&row)
		if err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, row.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *GormDocumentStore) CreateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.ETag = 1

	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, err
	}

	row := Document{
		ID:         stored.ID,
		Collection: collection,
		Payload:    payload,
		ETag:       stored.ETag,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *GormDocumentStore) UpdateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	var row Document
	err := r.db.Where("collection = ? AND id = ?", collection, event.ID).
		First(&row).Error
	if err != nil {
		return nil, err
	}

	stored := *event
	stored.ETag = row.ETag + 1

	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, err
	}

	row.Payload = payload
	row.ETag = stored.ETag
	if err := r.db.Save(&row).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// DeleteDocument removes a document. Deleting an absent document or
// collection is a no-op, not an error.
func (r *GormDocumentStore) DeleteDocument(collection, id string) error {
	err := r.db.Where("collection = ? AND id = ?", collection, id).
		Delete(&Document{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func decodeDocument(row *Document) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return nil, err
	}
	if event.ID == "" {
		event.ID = row.ID
	}
	event.ETag = row.ETag
	return &event, nil
}
