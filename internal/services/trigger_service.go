package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inboxcrm/internal/models"
	"inboxcrm/internal/registry"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidCondition is returned when a condition node mixes leaf fields
// with child lists, or sets both and_conditions and or_conditions.
var ErrInvalidCondition = errors.New("invalid trigger condition")

// TriggerCondition is a recursive condition tree. A node is either a leaf
// (field/operator/value) or a combinator carrying exactly one of
// and_conditions / or_conditions.
type TriggerCondition struct {
	Field         string             `json:"field,omitempty"`
	Operator      string             `json:"operator,omitempty"`
	Value         string             `json:"value,omitempty"`
	AndConditions []TriggerCondition `json:"and_conditions,omitempty"`
	OrConditions  []TriggerCondition `json:"or_conditions,omitempty"`
}

// TriggerService manages event-driven single-send triggers and evaluates
// their condition trees. Trigger firing itself happens in the external
// worker; the evaluator here backs both that contract and rule previews.
type TriggerService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewTriggerService(db *gorm.DB, logger *logrus.Logger) *TriggerService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TriggerService{db: db, logger: logger}
}

// TriggerRequest creates or replaces a trigger definition.
type TriggerRequest struct {
	TriggerType  string            `json:"trigger_type" binding:"required"`
	EntityTable  string            `json:"entity_table"`
	Conditions   *TriggerCondition `json:"conditions"`
	TemplateID   uint              `json:"template_id" binding:"required"`
	DelayMinutes int               `json:"delay_minutes"`
	IsActive     *bool             `json:"is_active"`
}

func isSupportedTriggerType(t string) bool {
	switch t {
	case "record_created", "record_updated", "email_received":
		return true
	default:
		return false
	}
}

func (s *TriggerService) List(ctx context.Context) ([]models.EmailTrigger, error) {
	var triggers []models.EmailTrigger
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&triggers).Error; err != nil {
		return nil, err
	}
	return triggers, nil
}

func (s *TriggerService) GetByID(ctx context.Context, id uint) (*models.EmailTrigger, error) {
	var trigger models.EmailTrigger
	if err := s.db.WithContext(ctx).First(&trigger, id).Error; err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (s *TriggerService) Create(ctx context.Context, req *TriggerRequest) (*models.EmailTrigger, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if !isSupportedTriggerType(req.TriggerType) {
		return nil, fmt.Errorf("unsupported trigger type: %s", req.TriggerType)
	}
	if req.EntityTable != "" && !registry.KnownEntityTable(req.EntityTable) {
		return nil, fmt.Errorf("unknown entity table: %s", req.EntityTable)
	}
	if req.DelayMinutes < 0 {
		return nil, fmt.Errorf("delay_minutes must be >= 0")
	}
	conditions := "{}"
	if req.Conditions != nil {
		if err := ValidateCondition(*req.Conditions); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(req.Conditions)
		if err != nil {
			return nil, fmt.Errorf("invalid conditions: %w", err)
		}
		conditions = string(raw)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	trigger := &models.EmailTrigger{
		TriggerType:  req.TriggerType,
		EntityTable:  req.EntityTable,
		Conditions:   conditions,
		TemplateID:   req.TemplateID,
		DelayMinutes: req.DelayMinutes,
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(trigger).Error; err != nil {
		return nil, err
	}
	return trigger, nil
}

// Toggle flips a trigger's active flag.
func (s *TriggerService) Toggle(ctx context.Context, id uint, active bool) (*models.EmailTrigger, error) {
	var trigger models.EmailTrigger
	if err := s.db.WithContext(ctx).First(&trigger, id).Error; err != nil {
		return nil, err
	}
	trigger.IsActive = active
	trigger.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&trigger).Error; err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (s *TriggerService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.EmailTrigger{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trigger not found")
	}
	return nil
}

// Matches decodes a trigger's stored condition tree and evaluates it
// against a record. A malformed tree fails closed.
func (s *TriggerService) Matches(trigger models.EmailTrigger, record map[string]string) bool {
	if trigger.Conditions == "" {
		return true
	}
	var cond TriggerCondition
	if err := json.Unmarshal([]byte(trigger.Conditions), &cond); err != nil {
		s.logger.Warnf("trigger %d: invalid conditions: %v", trigger.ID, err)
		return false
	}
	return EvaluateCondition(cond, record)
}

// ValidateCondition enforces the node shape recursively: a node is a leaf
// xor a combinator, and a combinator sets exactly one child list.
func ValidateCondition(cond TriggerCondition) error {
	leaf := cond.Field != "" || cond.Operator != "" || cond.Value != ""
	hasAnd := len(cond.AndConditions) > 0
	hasOr := len(cond.OrConditions) > 0

	if leaf && (hasAnd || hasOr) {
		return fmt.Errorf("%w: node mixes leaf fields with child conditions", ErrInvalidCondition)
	}
	if hasAnd && hasOr {
		return fmt.Errorf("%w: node sets both and_conditions and or_conditions", ErrInvalidCondition)
	}
	if leaf {
		if cond.Field == "" || cond.Operator == "" {
			return fmt.Errorf("%w: leaf requires field and operator", ErrInvalidCondition)
		}
		if !isSupportedOperator(cond.Operator) {
			return fmt.Errorf("%w: unsupported operator %s", ErrInvalidCondition, cond.Operator)
		}
	}
	for _, child := range cond.AndConditions {
		if err := ValidateCondition(child); err != nil {
			return err
		}
	}
	for _, child := range cond.OrConditions {
		if err := ValidateCondition(child); err != nil {
			return err
		}
	}
	return nil
}

func isSupportedOperator(op string) bool {
	switch op {
	case "equals", "not_equals", "contains", "not_contains", "is_empty", "is_not_empty":
		return true
	default:
		return false
	}
}

// EvaluateCondition evaluates a condition tree against a flat record. A
// node with neither leaf fields nor children matches everything. The
// evaluator is total: should a mixed node slip through, every populated
// part must hold (AND-first).
func EvaluateCondition(cond TriggerCondition, record map[string]string) bool {
	leaf := cond.Field != ""
	hasAnd := len(cond.AndConditions) > 0
	hasOr := len(cond.OrConditions) > 0

	if !leaf && !hasAnd && !hasOr {
		return true
	}
	if leaf && !evaluateLeaf(cond, record) {
		return false
	}
	if hasAnd {
		for _, child := range cond.AndConditions {
			if !EvaluateCondition(child, record) {
				return false
			}
		}
	}
	if hasOr {
		matched := false
		for _, child := range cond.OrConditions {
			if EvaluateCondition(child, record) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func evaluateLeaf(cond TriggerCondition, record map[string]string) bool {
	actual := record[cond.Field]
	switch cond.Operator {
	case "equals":
		return actual == cond.Value
	case "not_equals":
		return actual != cond.Value
	case "contains":
		return strings.Contains(actual, cond.Value)
	case "not_contains":
		return !strings.Contains(actual, cond.Value)
	case "is_empty":
		return actual == ""
	case "is_not_empty":
		return actual != ""
	default:
		return false
	}
}
