package services

import (
	"encoding/json"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/logger"
	"github.com/argus-sec/argus/internal/metrics"
	"github.com/argus-sec/argus/internal/models"
)

// AuditService appends security events to the immutable audit trail.
// Writes are durable but not exactly-once: when the store is unavailable the
// failure is logged and counted, and the caller's already-computed decision
// still stands.
type AuditService struct {
	db       *gorm.DB
	alertURL string
}

// NewAuditService returns an AuditService. alertURL, when non-empty, is a
// shoutrrr URL notified whenever a SYSTEM_ERROR event is recorded.
func NewAuditService(db *gorm.DB, alertURL string) *AuditService {
	return &AuditService{db: db, alertURL: alertURL}
}

// Record appends one event. Event type and entity reference are validated by
// the model's BeforeCreate hook.
func (s *AuditService) Record(event *models.AuditEvent) error {
	if err := s.db.Create(event).Error; err != nil {
		metrics.IncAuditWriteError()
		return err
	}

	if event.EventType == models.EventSystemError && s.alertURL != "" {
		if err := shoutrrr.Send(s.alertURL, "Argus SYSTEM_ERROR: "+event.Details); err != nil {
			logger.Log().WithError(err).Warn("failed to deliver system error alert")
		}
	}

	return nil
}

// RecordBestEffort appends one event and only logs on failure. Used on
// decision paths where the outcome has already been computed and must be
// returned to the caller regardless of audit store health.
func (s *AuditService) RecordBestEffort(event *models.AuditEvent) {
	if err := s.Record(event); err != nil {
		logger.WithFields(map[string]interface{}{
			"event_type": event.EventType,
			"source_ip":  event.SourceIP,
		}).WithError(err).Error("failed to persist audit event")
	}
}

// List returns events newest-first with the total count for pagination.
// eventType, when non-empty, filters to a single type.
func (s *AuditService) List(page, limit int, eventType string) ([]models.AuditEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := s.db.Model(&models.AuditEvent{})
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.AuditEvent
	if err := query.Order("created_at desc, id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// Detail marshals a structured detail payload for storage on an event.
func Detail(fields map[string]interface{}) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(b)
}
