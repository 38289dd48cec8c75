package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/ipmatch"
	"github.com/argus-sec/argus/internal/models"
)

// WhitelistService owns whitelist rule persistence and validation. Every
// successful mutation is paired with exactly one audit event; validation
// failures emit none.
type WhitelistService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewWhitelistService(db *gorm.DB, audit *AuditService) *WhitelistService {
	return &WhitelistService{db: db, audit: audit}
}

// RuleInput carries the caller-suppliable fields of a rule. Ownership and
// timestamps are never taken from the caller. On update, empty fields keep
// their stored value.
type RuleInput struct {
	ServiceName string `json:"service_name"`
	AddressSpec string `json:"address_spec"`
	Description string `json:"description"`
}

// Create validates and persists a new rule and audits the mutation.
func (s *WhitelistService) Create(input RuleInput, actor *models.User, sourceIP string) (*models.WhitelistRule, error) {
	if !ipmatch.ValidSpec(input.AddressSpec) {
		return nil, ErrInvalidAddressSpec
	}

	rule := &models.WhitelistRule{
		UUID:        uuid.New().String(),
		ServiceName: normalizeService(input.ServiceName),
		AddressSpec: ipmatch.Normalize(input.AddressSpec),
		Description: strings.TrimSpace(input.Description),
		CreatedByID: actor.ID,
	}
	if rule.ServiceName == "" {
		return nil, ErrMissingFields
	}

	var count int64
	if err := s.db.Model(&models.WhitelistRule{}).
		Where("address_spec = ?", rule.AddressSpec).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateAddressSpec
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, err
	}

	s.audit.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventWhitelistCreate,
		ActorID:    &actor.ID,
		SourceIP:   sourceIP,
		EntityID:   &rule.ID,
		EntityKind: models.EntityWhitelistRule,
		Details: Detail(map[string]interface{}{
			"address_spec": rule.AddressSpec,
			"service_name": rule.ServiceName,
		}),
	})

	return rule, nil
}

// GetByID retrieves a rule by ID.
func (s *WhitelistService) GetByID(id uint) (*models.WhitelistRule, error) {
	var rule models.WhitelistRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// List returns rules newest-first with the total count for pagination.
// search matches address, service and description; serviceName narrows to
// one service.
func (s *WhitelistService) List(page, limit int, search, serviceName string) ([]models.WhitelistRule, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := s.db.Model(&models.WhitelistRule{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"address_spec LIKE ? OR service_name LIKE ? OR description LIKE ?",
			like, like, like,
		)
	}
	if serviceName != "" {
		query = query.Where("service_name = ?", normalizeService(serviceName))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rules []models.WhitelistRule
	if err := query.Order("created_at desc, id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

// Update applies caller-suppliable fields to an existing rule and audits the
// change with before/after values.
func (s *WhitelistService) Update(id uint, input RuleInput, actor *models.User, sourceIP string) (*models.WhitelistRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	oldAddress := rule.AddressSpec
	oldService := rule.ServiceName

	if input.AddressSpec != "" {
		if !ipmatch.ValidSpec(input.AddressSpec) {
			return nil, ErrInvalidAddressSpec
		}
		normalized := ipmatch.Normalize(input.AddressSpec)
		if normalized != rule.AddressSpec {
			var count int64
			if err := s.db.Model(&models.WhitelistRule{}).
				Where("address_spec = ? AND id <> ?", normalized, rule.ID).
				Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrDuplicateAddressSpec
			}
		}
		rule.AddressSpec = normalized
	}
	if input.ServiceName != "" {
		rule.ServiceName = normalizeService(input.ServiceName)
	}
	if input.Description != "" {
		rule.Description = strings.TrimSpace(input.Description)
	}

	if err := s.db.Save(rule).Error; err != nil {
		return nil, err
	}

	s.audit.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventWhitelistUpdate,
		ActorID:    &actor.ID,
		SourceIP:   sourceIP,
		EntityID:   &rule.ID,
		EntityKind: models.EntityWhitelistRule,
		Details: Detail(map[string]interface{}{
			"old_address_spec": oldAddress,
			"new_address_spec": rule.AddressSpec,
			"old_service_name": oldService,
			"new_service_name": rule.ServiceName,
		}),
	})

	return rule, nil
}

// Delete removes a rule and audits the removal.
func (s *WhitelistService) Delete(id uint, actor *models.User, sourceIP string) error {
	rule, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&models.WhitelistRule{}, rule.ID).Error; err != nil {
		return err
	}

	s.audit.RecordBestEffort(&models.AuditEvent{
		EventType:  models.EventWhitelistDelete,
		ActorID:    &actor.ID,
		SourceIP:   sourceIP,
		EntityID:   &rule.ID,
		EntityKind: models.EntityWhitelistRule,
		Details: Detail(map[string]interface{}{
			"address_spec": rule.AddressSpec,
			"service_name": rule.ServiceName,
		}),
	})

	return nil
}

// RulesForService returns every rule registered for the normalized service name.
func (s *WhitelistService) RulesForService(serviceName string) ([]models.WhitelistRule, error) {
	var rules []models.WhitelistRule
	if err := s.db.Where("service_name = ?", normalizeService(serviceName)).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func normalizeService(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
