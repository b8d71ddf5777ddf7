package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inboxcrm/internal/models"
	"inboxcrm/internal/registry"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SequenceService manages email sequences and their ordered steps.
type SequenceService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewSequenceService(db *gorm.DB, logger *logrus.Logger) *SequenceService {
	if logger == nil {
		logger = logrus.New()
	}
	return &SequenceService{db: db, logger: logger}
}

// SequenceCreateRequest creates a sequence, optionally scoped to an entity
// table.
type SequenceCreateRequest struct {
	Name        string  `json:"name" binding:"required"`
	EntityTable *string `json:"entity_table"`
}

// SequenceStepRequest adds or updates a step.
type SequenceStepRequest struct {
	StepOrder  int  `json:"step_order" binding:"required"`
	TemplateID uint `json:"template_id" binding:"required"`
	DelayDays  int  `json:"delay_days"`
	DelayHours int  `json:"delay_hours"`
}

func (s *SequenceService) List(ctx context.Context) ([]models.EmailSequence, error) {
	var sequences []models.EmailSequence
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Order("id DESC").
		Find(&sequences).Error
	if err != nil {
		return nil, err
	}
	return sequences, nil
}

func (s *SequenceService) Get(ctx context.Context, id uint) (*models.EmailSequence, error) {
	var sequence models.EmailSequence
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		First(&sequence, id).Error
	if err != nil {
		return nil, err
	}
	return &sequence, nil
}

func (s *SequenceService) Create(ctx context.Context, req *SequenceCreateRequest) (*models.EmailSequence, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if req.EntityTable != nil && !registry.KnownEntityTable(*req.EntityTable) {
		return nil, fmt.Errorf("unknown entity table: %s", *req.EntityTable)
	}
	sequence := &models.EmailSequence{
		Name:        req.Name,
		EntityTable: req.EntityTable,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(sequence).Error; err != nil {
		return nil, err
	}
	return sequence, nil
}

// Toggle flips a sequence's active flag.
func (s *SequenceService) Toggle(ctx context.Context, id uint, active bool) (*models.EmailSequence, error) {
	var sequence models.EmailSequence
	if err := s.db.WithContext(ctx).First(&sequence, id).Error; err != nil {
		return nil, err
	}
	sequence.IsActive = active
	sequence.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&sequence).Error; err != nil {
		return nil, err
	}
	return &sequence, nil
}

// AddStep appends a step after validating delays and step order. Step
// orders must be unique within a sequence; gaps are allowed and steps are
// consumed in ascending order.
func (s *SequenceService) AddStep(ctx context.Context, sequenceID uint, req *SequenceStepRequest) (*models.SequenceStep, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if err := validateStep(req); err != nil {
		return nil, err
	}
	var sequence models.EmailSequence
	if err := s.db.WithContext(ctx).First(&sequence, sequenceID).Error; err != nil {
		return nil, err
	}
	var clash int64
	if err := s.db.WithContext(ctx).Model(&models.SequenceStep{}).
		Where("sequence_id = ? AND step_order = ?", sequenceID, req.StepOrder).
		Count(&clash).Error; err != nil {
		return nil, err
	}
	if clash > 0 {
		return nil, fmt.Errorf("step_order %d already used in sequence %d", req.StepOrder, sequenceID)
	}
	step := &models.SequenceStep{
		SequenceID: sequenceID,
		StepOrder:  req.StepOrder,
		TemplateID: req.TemplateID,
		DelayDays:  req.DelayDays,
		DelayHours: req.DelayHours,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

// DeleteStep removes a step. Enrollments already past it are unaffected;
// position-based CurrentStep keeps them consistent with the shrunken list.
func (s *SequenceService) DeleteStep(ctx context.Context, stepID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.SequenceStep{}, stepID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("step not found")
	}
	return nil
}

func validateStep(req *SequenceStepRequest) error {
	if req.StepOrder < 1 {
		return fmt.Errorf("step_order must be >= 1")
	}
	if req.DelayDays < 0 {
		return fmt.Errorf("delay_days must be >= 0")
	}
	if req.DelayHours < 0 || req.DelayHours > 23 {
		return fmt.Errorf("delay_hours must be between 0 and 23")
	}
	return nil
}

// StepDelay converts a step's delay to a duration.
func StepDelay(step models.SequenceStep) time.Duration {
	return time.Duration(step.DelayDays)*24*time.Hour + time.Duration(step.DelayHours)*time.Hour
}

// FormatDelay renders a step delay for display: both parts zero reads
// "Immediately", otherwise the non-zero parts are pluralized and joined
// with ", ", e.g. "2 days, 3 hours".
func FormatDelay(days, hours int) string {
	if days == 0 && hours == 0 {
		return "Immediately"
	}
	parts := make([]string, 0, 2)
	if days > 0 {
		parts = append(parts, pluralize(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, pluralize(hours, "hour"))
	}
	return strings.Join(parts, ", ")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
