package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"inboxcrm/internal/metrics"
	"inboxcrm/internal/models"
	"inboxcrm/internal/registry"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidActionForEntity is returned when an action type outside the
// entity table's allowed set would be attached to its rule.
var ErrInvalidActionForEntity = errors.New("action type not allowed for entity table")

// EntityRuleService manages the one-rule-per-entity-table automation model:
// seeding, toggling and the action CRUD beneath each rule.
type EntityRuleService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEntityRuleService(db *gorm.DB, logger *logrus.Logger) *EntityRuleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EntityRuleService{db: db, logger: logger}
}

// RuleActionRequest carries a new or updated action payload.
type RuleActionRequest struct {
	ActionType models.ActionType `json:"action_type" binding:"required"`
	Config     string            `json:"config"`
	IsActive   *bool             `json:"is_active"`
}

// EnsureEntityRules seeds one active EntityAutomationRule per registry
// entity table. It is idempotent and gap-filling: tables that already have
// a rule are left alone, so a partially failed earlier run is repaired
// rather than duplicated.
func (s *EntityRuleService) EnsureEntityRules(ctx context.Context) error {
	var existing []models.EntityAutomationRule
	if err := s.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, rule := range existing {
		have[rule.EntityTable] = true
	}

	created := 0
	for _, table := range registry.EntityTables {
		if have[table] {
			continue
		}
		rule := &models.EntityAutomationRule{
			EntityTable: table,
			IsActive:    true,
			Description: fmt.Sprintf("Email automation for %s", registry.DisplayName(table)),
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
			return fmt.Errorf("seed rule for %s: %w", table, err)
		}
		created++
	}
	if created > 0 {
		s.logger.Infof("entity rules: seeded %d missing rule(s)", created)
	}
	return nil
}

// ListRules returns every entity rule with its actions preloaded, in the
// registry's table order.
func (s *EntityRuleService) ListRules(ctx context.Context) ([]models.EntityAutomationRule, error) {
	var rules []models.EntityAutomationRule
	if err := s.db.WithContext(ctx).Preload("Actions").Find(&rules).Error; err != nil {
		return nil, err
	}
	order := make(map[string]int, len(registry.EntityTables))
	for i, table := range registry.EntityTables {
		order[table] = i
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return order[rules[i].EntityTable] < order[rules[j].EntityTable]
	})
	return rules, nil
}

// GetRule loads one rule with actions.
func (s *EntityRuleService) GetRule(ctx context.Context, id uint) (*models.EntityAutomationRule, error) {
	var rule models.EntityAutomationRule
	if err := s.db.WithContext(ctx).Preload("Actions").First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ToggleRule flips a rule's active flag. Rules are never hard-deleted.
func (s *EntityRuleService) ToggleRule(ctx context.Context, id uint, active bool) (*models.EntityAutomationRule, error) {
	var rule models.EntityAutomationRule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, err
	}
	rule.IsActive = active
	rule.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// AddAction attaches an action to a rule after checking the entity table's
// allowed-action set and normalizing the config payload.
func (s *EntityRuleService) AddAction(ctx context.Context, ruleID uint, req *RuleActionRequest) (*models.RuleAction, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var rule models.EntityAutomationRule
	if err := s.db.WithContext(ctx).First(&rule, ruleID).Error; err != nil {
		return nil, err
	}
	if !models.KnownActionType(req.ActionType) {
		return nil, fmt.Errorf("unknown action type: %s", req.ActionType)
	}
	if !registry.ActionAllowed(rule.EntityTable, req.ActionType) {
		metrics.IncRuleRejection()
		return nil, fmt.Errorf("%w: %s on %s", ErrInvalidActionForEntity, req.ActionType, rule.EntityTable)
	}
	config, err := NormalizeActionConfig(req.ActionType, req.Config)
	if err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	action := &models.RuleAction{
		EntityRuleID: ruleID,
		ActionType:   req.ActionType,
		Config:       config,
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return nil, err
	}
	return action, nil
}

// UpdateActionConfig replaces an action's config after normalization. The
// action type itself is immutable; delete and re-add to change it.
func (s *EntityRuleService) UpdateActionConfig(ctx context.Context, actionID uint, rawConfig string) (*models.RuleAction, error) {
	var action models.RuleAction
	if err := s.db.WithContext(ctx).First(&action, actionID).Error; err != nil {
		return nil, err
	}
	config, err := NormalizeActionConfig(action.ActionType, rawConfig)
	if err != nil {
		return nil, err
	}
	action.Config = config
	action.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

// ToggleAction flips an action's active flag. The config is preserved so
// re-enabling restores the previous behavior.
func (s *EntityRuleService) ToggleAction(ctx context.Context, actionID uint, active bool) (*models.RuleAction, error) {
	var action models.RuleAction
	if err := s.db.WithContext(ctx).First(&action, actionID).Error; err != nil {
		return nil, err
	}
	action.IsActive = active
	action.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

// DeleteAction removes an action from its rule.
func (s *EntityRuleService) DeleteAction(ctx context.Context, actionID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.RuleAction{}, actionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("action not found")
	}
	return nil
}

// ActiveActionsCount counts the active actions on a rule; shown as a badge
// next to each entity table.
func ActiveActionsCount(rule *models.EntityAutomationRule) int {
	if rule == nil {
		return 0
	}
	count := 0
	for _, action := range rule.Actions {
		if action.IsActive {
			count++
		}
	}
	return count
}
