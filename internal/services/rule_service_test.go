package services

import (
	"context"
	"errors"
	"testing"

	"inboxcrm/internal/models"
	"inboxcrm/internal/registry"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newRuleTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.EntityAutomationRule{}, &models.RuleAction{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestEnsureEntityRules_Idempotent(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())

	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int64
	db.Model(&models.EntityAutomationRule{}).Count(&count)
	if int(count) != len(registry.EntityTables) {
		t.Fatalf("expected %d rules, got %d", len(registry.EntityTables), count)
	}
}

func TestEnsureEntityRules_FillsGaps(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())

	// Pre-create one rule to simulate a partial earlier run.
	db.Create(&models.EntityAutomationRule{EntityTable: "people", IsActive: true})

	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}

	var count int64
	db.Model(&models.EntityAutomationRule{}).Count(&count)
	if int(count) != len(registry.EntityTables) {
		t.Fatalf("expected %d rules after gap fill, got %d", len(registry.EntityTables), count)
	}
	var peopleRules []models.EntityAutomationRule
	db.Where("entity_table = ?", "people").Find(&peopleRules)
	if len(peopleRules) != 1 {
		t.Fatalf("expected exactly 1 people rule, got %d", len(peopleRules))
	}
}

func TestListRules_RegistryOrder(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())

	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}
	rules, err := svc.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != len(registry.EntityTables) {
		t.Fatalf("expected %d rules, got %d", len(registry.EntityTables), len(rules))
	}
	for i, rule := range rules {
		if rule.EntityTable != registry.EntityTables[i] {
			t.Fatalf("rule %d is %s, want %s", i, rule.EntityTable, registry.EntityTables[i])
		}
	}
}

func TestAddAction_RejectsDisallowedType(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}

	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "personal_contacts").First(&rule)

	// Invoice extraction is reserved for billing-related tables.
	_, err := svc.AddAction(context.Background(), rule.ID, &RuleActionRequest{
		ActionType: models.ActionExtractInvoice,
	})
	if !errors.Is(err, ErrInvalidActionForEntity) {
		t.Fatalf("expected ErrInvalidActionForEntity, got %v", err)
	}

	var count int64
	db.Model(&models.RuleAction{}).Count(&count)
	if count != 0 {
		t.Fatal("rejected action was persisted")
	}
}

func TestAddAction_UnknownType(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}
	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	if _, err := svc.AddAction(context.Background(), rule.ID, &RuleActionRequest{ActionType: "explode"}); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}

func TestAddAction_NormalizesConfig(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}
	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	action, err := svc.AddAction(context.Background(), rule.ID, &RuleActionRequest{
		ActionType: models.ActionTag,
		Config:     `{"tag_ids":["vip"],"junk":true}`,
	})
	if err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if action.Config != `{"tag_ids":["vip"]}` {
		t.Fatalf("config not normalized: %s", action.Config)
	}
	if !action.IsActive {
		t.Error("new action should default to active")
	}
}

func TestUpdateActionConfig_TypeImmutable(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}
	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	action, err := svc.AddAction(context.Background(), rule.ID, &RuleActionRequest{ActionType: models.ActionMarkPriority})
	if err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	updated, err := svc.UpdateActionConfig(context.Background(), action.ID, `{"priority":"high"}`)
	if err != nil {
		t.Fatalf("UpdateActionConfig: %v", err)
	}
	if updated.ActionType != models.ActionMarkPriority {
		t.Error("action type changed on config update")
	}
	if updated.Config != `{"priority":"high"}` {
		t.Fatalf("got config %s", updated.Config)
	}

	// Invalid enum value is rejected, row untouched.
	if _, err := svc.UpdateActionConfig(context.Background(), action.ID, `{"priority":"urgent"}`); err == nil {
		t.Fatal("expected enum validation error")
	}
	var reloaded models.RuleAction
	db.First(&reloaded, action.ID)
	if reloaded.Config != `{"priority":"high"}` {
		t.Fatalf("config changed after rejected update: %s", reloaded.Config)
	}
}

func TestToggleAction_PreservesConfig(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("EnsureEntityRules: %v", err)
	}
	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	action, _ := svc.AddAction(context.Background(), rule.ID, &RuleActionRequest{
		ActionType: models.ActionTag,
		Config:     `{"tag_ids":["vip"]}`,
	})

	off, err := svc.ToggleAction(context.Background(), action.ID, false)
	if err != nil {
		t.Fatalf("ToggleAction: %v", err)
	}
	if off.IsActive {
		t.Error("expected action inactive")
	}
	if off.Config != `{"tag_ids":["vip"]}` {
		t.Error("toggle must not touch config")
	}
}

func TestDeleteAction_NotFound(t *testing.T) {
	db := newRuleTestDB(t)
	svc := NewEntityRuleService(db, logrus.New())
	if err := svc.DeleteAction(context.Background(), 999); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestActiveActionsCount(t *testing.T) {
	rule := &models.EntityAutomationRule{
		Actions: []models.RuleAction{
			{IsActive: true},
			{IsActive: false},
			{IsActive: true},
		},
	}
	if got := ActiveActionsCount(rule); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if got := ActiveActionsCount(nil); got != 0 {
		t.Fatalf("nil rule: got %d, want 0", got)
	}
}
