package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/models"
)

func seedActor(t *testing.T, db *gorm.DB) *models.User {
	service := NewAuthService(db, testConfig())
	actor, err := service.Register("Admin", "admin@example.com", "password123", models.RoleAdmin)
	require.NoError(t, err)
	return actor
}

func auditCount(t *testing.T, db *gorm.DB, eventType string) int64 {
	var n int64
	require.NoError(t, db.Model(&models.AuditEvent{}).
		Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestWhitelistService_Create(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	rule, err := service.Create(RuleInput{
		ServiceName: "Billing",
		AddressSpec: "10.0.0.0/24",
		Description: "Office subnet",
	}, actor, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "billing", rule.ServiceName)
	assert.Equal(t, "10.0.0.0/24", rule.AddressSpec)
	assert.NotEmpty(t, rule.UUID)
	assert.Equal(t, actor.ID, rule.CreatedByID)
	assert.EqualValues(t, 1, auditCount(t, db, models.EventWhitelistCreate))
}

func TestWhitelistService_Create_InvalidSpecLeavesNoTrace(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	_, err := service.Create(RuleInput{
		ServiceName: "billing",
		AddressSpec: "not-an-ip",
	}, actor, "203.0.113.9")
	assert.ErrorIs(t, err, ErrInvalidAddressSpec)

	// Rejected input writes neither a rule nor an audit event
	var rules int64
	require.NoError(t, db.Model(&models.WhitelistRule{}).Count(&rules).Error)
	assert.EqualValues(t, 0, rules)
	assert.EqualValues(t, 0, auditCount(t, db, models.EventWhitelistCreate))
}

func TestWhitelistService_Create_DuplicateSpec(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	_, err := service.Create(RuleInput{ServiceName: "billing", AddressSpec: "10.0.0.0/24"}, actor, "203.0.113.9")
	require.NoError(t, err)

	// Equivalent spec collides after normalization even for another service
	_, err = service.Create(RuleInput{ServiceName: "reports", AddressSpec: "10.0.0.5/24"}, actor, "203.0.113.9")
	assert.ErrorIs(t, err, ErrDuplicateAddressSpec)
}

func TestWhitelistService_Update(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	rule, err := service.Create(RuleInput{ServiceName: "billing", AddressSpec: "10.0.0.0/24"}, actor, "203.0.113.9")
	require.NoError(t, err)

	updated, err := service.Update(rule.ID, RuleInput{AddressSpec: "10.0.1.0/24"}, actor, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.0/24", updated.AddressSpec)
	assert.Equal(t, "billing", updated.ServiceName)
	assert.EqualValues(t, 1, auditCount(t, db, models.EventWhitelistUpdate))

	_, err = service.Update(rule.ID, RuleInput{AddressSpec: "bogus"}, actor, "203.0.113.9")
	assert.ErrorIs(t, err, ErrInvalidAddressSpec)

	_, err = service.Update(9999, RuleInput{AddressSpec: "10.2.0.0/24"}, actor, "203.0.113.9")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestWhitelistService_Delete(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	rule, err := service.Create(RuleInput{ServiceName: "billing", AddressSpec: "10.0.0.0/24"}, actor, "203.0.113.9")
	require.NoError(t, err)

	require.NoError(t, service.Delete(rule.ID, actor, "203.0.113.9"))
	assert.EqualValues(t, 1, auditCount(t, db, models.EventWhitelistDelete))

	_, err = service.GetByID(rule.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	assert.ErrorIs(t, service.Delete(rule.ID, actor, "203.0.113.9"), ErrRuleNotFound)
}

func TestWhitelistService_List(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	specs := []string{"10.0.0.0/24", "10.0.1.0/24", "192.168.1.50"}
	names := []string{"billing", "billing", "reports"}
	for i := range specs {
		_, err := service.Create(RuleInput{ServiceName: names[i], AddressSpec: specs[i]}, actor, "203.0.113.9")
		require.NoError(t, err)
	}

	rules, total, err := service.List(1, 10, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rules, 3)

	rules, total, err = service.List(1, 10, "", "Billing")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range rules {
		assert.Equal(t, "billing", r.ServiceName)
	}

	rules, total, err = service.List(1, 10, "192.168", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "192.168.1.50", rules[0].AddressSpec)

	rules, total, err = service.List(2, 2, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rules, 1)
}

func TestWhitelistService_RulesForService(t *testing.T) {
	db := setupTestDB(t)
	actor := seedActor(t, db)
	service := NewWhitelistService(db, NewAuditService(db, ""))

	_, err := service.Create(RuleInput{ServiceName: "Billing", AddressSpec: "10.0.0.0/24"}, actor, "203.0.113.9")
	require.NoError(t, err)

	rules, err := service.RulesForService("BILLING")
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	rules, err = service.RulesForService("reports")
	require.NoError(t, err)
	assert.Empty(t, rules)
}
