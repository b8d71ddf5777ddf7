package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inboxcrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrTerminalEnrollment is returned when a transition is attempted on a
// completed, unsubscribed or failed enrollment.
var ErrTerminalEnrollment = errors.New("enrollment is in a terminal state")

// EnrollmentService owns the enrollment lifecycle. The worker that actually
// delivers mail polls next_send_at externally; this service is the single
// writer of enrollment state and send-log rows.
type EnrollmentService struct {
	db     *gorm.DB
	logger *logrus.Logger
	logs   *SendLogService
	hub    *ActivityHub
}

func NewEnrollmentService(db *gorm.DB, logger *logrus.Logger, logs *SendLogService) *EnrollmentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EnrollmentService{db: db, logger: logger, logs: logs}
}

// SetActivityHub wires the optional live feed; send-log rows written during
// advancement are broadcast to connected clients.
func (s *EnrollmentService) SetActivityHub(hub *ActivityHub) {
	s.hub = hub
}

// EnrollRequest enrolls one contact into a sequence.
type EnrollRequest struct {
	SequenceID   uint   `json:"sequence_id" binding:"required"`
	ContactType  string `json:"contact_type"`
	ContactID    uint   `json:"contact_id"`
	ContactEmail string `json:"contact_email" binding:"required"`
}

// Enroll creates an active enrollment at step 1 and schedules the first
// send. The sequence must exist and be active; enrolling into one with no
// active steps completes immediately.
func (s *EnrollmentService) Enroll(ctx context.Context, req *EnrollRequest) (*models.SequenceEnrollment, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var sequence models.EmailSequence
	if err := s.db.WithContext(ctx).First(&sequence, req.SequenceID).Error; err != nil {
		return nil, err
	}
	if !sequence.IsActive {
		return nil, fmt.Errorf("sequence %d is inactive", sequence.ID)
	}
	steps, err := s.activeSteps(ctx, sequence.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	enrollment := &models.SequenceEnrollment{
		SequenceID:   req.SequenceID,
		ContactType:  req.ContactType,
		ContactID:    req.ContactID,
		ContactEmail: req.ContactEmail,
		CurrentStep:  1,
		Status:       models.EnrollmentActive,
		EnrolledAt:   now,
	}
	if len(steps) == 0 {
		enrollment.Status = models.EnrollmentCompleted
		enrollment.CompletedAt = &now
	} else {
		next := now.Add(StepDelay(steps[0]))
		enrollment.NextSendAt = &next
	}
	if err := s.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Get loads one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id uint) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	if err := s.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListBySequence returns a sequence's enrollments, newest first.
func (s *EnrollmentService) ListBySequence(ctx context.Context, sequenceID uint) ([]models.SequenceEnrollment, error) {
	var enrollments []models.SequenceEnrollment
	err := s.db.WithContext(ctx).
		Where("sequence_id = ?", sequenceID).
		Order("id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Advance records the outcome of the current step's send and moves the
// enrollment forward: current_step increments, and either the next send is
// scheduled from now or, past the last step, the enrollment completes with
// next_send_at cleared. Only active enrollments advance.
func (s *EnrollmentService) Advance(ctx context.Context, id uint, sendStatus string, sendErr string) (*models.SequenceEnrollment, error) {
	if sendStatus != "" && !isSendStatus(sendStatus) {
		return nil, fmt.Errorf("unsupported send status: %s", sendStatus)
	}
	var enrollment models.SequenceEnrollment
	if err := s.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentActive {
		if enrollment.Status == models.EnrollmentPaused {
			return nil, fmt.Errorf("enrollment %d is paused", id)
		}
		return nil, fmt.Errorf("%w: %s", ErrTerminalEnrollment, enrollment.Status)
	}
	steps, err := s.activeSteps(ctx, enrollment.SequenceID)
	if err != nil {
		return nil, err
	}

	s.recordStepSend(ctx, &enrollment, steps, sendStatus, sendErr)

	now := time.Now()
	enrollment.CurrentStep++
	if enrollment.CurrentStep > len(steps) {
		enrollment.Status = models.EnrollmentCompleted
		enrollment.CompletedAt = &now
		enrollment.NextSendAt = nil
	} else {
		next := now.Add(StepDelay(steps[enrollment.CurrentStep-1]))
		enrollment.NextSendAt = &next
	}
	if err := s.db.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Pause suspends an active enrollment. Its next_send_at becomes inert until
// resumed.
func (s *EnrollmentService) Pause(ctx context.Context, id uint) (*models.SequenceEnrollment, error) {
	return s.transition(ctx, id, models.EnrollmentActive, models.EnrollmentPaused, nil)
}

// Resume reactivates a paused enrollment and recomputes next_send_at from
// now for the current step; the stale scheduled time is never reused.
func (s *EnrollmentService) Resume(ctx context.Context, id uint) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	if err := s.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentPaused {
		return nil, fmt.Errorf("enrollment %d is not paused", id)
	}
	steps, err := s.activeSteps(ctx, enrollment.SequenceID)
	if err != nil {
		return nil, err
	}
	enrollment.Status = models.EnrollmentActive
	if enrollment.CurrentStep >= 1 && enrollment.CurrentStep <= len(steps) {
		next := time.Now().Add(StepDelay(steps[enrollment.CurrentStep-1]))
		enrollment.NextSendAt = &next
	} else {
		enrollment.NextSendAt = nil
	}
	if err := s.db.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Unsubscribe terminally removes a contact from its sequence.
func (s *EnrollmentService) Unsubscribe(ctx context.Context, id uint) (*models.SequenceEnrollment, error) {
	return s.anyNonTerminal(ctx, id, models.EnrollmentUnsubscribed)
}

// Fail terminally marks an enrollment after the delivery worker gives up.
func (s *EnrollmentService) Fail(ctx context.Context, id uint) (*models.SequenceEnrollment, error) {
	return s.anyNonTerminal(ctx, id, models.EnrollmentFailed)
}

func (s *EnrollmentService) transition(ctx context.Context, id uint, from, to string, mutate func(*models.SequenceEnrollment)) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	if err := s.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	if isTerminal(enrollment.Status) {
		return nil, fmt.Errorf("%w: %s", ErrTerminalEnrollment, enrollment.Status)
	}
	if enrollment.Status != from {
		return nil, fmt.Errorf("enrollment %d is %s, expected %s", id, enrollment.Status, from)
	}
	enrollment.Status = to
	if mutate != nil {
		mutate(&enrollment)
	}
	if err := s.db.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *EnrollmentService) anyNonTerminal(ctx context.Context, id uint, to string) (*models.SequenceEnrollment, error) {
	var enrollment models.SequenceEnrollment
	if err := s.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	if isTerminal(enrollment.Status) {
		return nil, fmt.Errorf("%w: %s", ErrTerminalEnrollment, enrollment.Status)
	}
	enrollment.Status = to
	enrollment.NextSendAt = nil
	if err := s.db.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func isSendStatus(status string) bool {
	switch status {
	case models.SendPending, models.SendSent, models.SendFailed, models.SendBounced:
		return true
	}
	return false
}

func isTerminal(status string) bool {
	switch status {
	case models.EnrollmentCompleted, models.EnrollmentUnsubscribed, models.EnrollmentFailed:
		return true
	}
	return false
}

// activeSteps loads a sequence's active steps in ascending step order.
// CurrentStep is a 1-based position into this slice.
func (s *EnrollmentService) activeSteps(ctx context.Context, sequenceID uint) ([]models.SequenceStep, error) {
	var steps []models.SequenceStep
	err := s.db.WithContext(ctx).
		Where("sequence_id = ? AND is_active = ?", sequenceID, true).
		Order("step_order ASC").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *EnrollmentService) recordStepSend(ctx context.Context, enrollment *models.SequenceEnrollment, steps []models.SequenceStep, status, errMsg string) {
	if s.logs == nil || status == "" {
		return
	}
	if enrollment.CurrentStep < 1 || enrollment.CurrentStep > len(steps) {
		return
	}
	step := steps[enrollment.CurrentStep-1]
	var subject string
	var tmpl models.EmailTemplate
	if err := s.db.WithContext(ctx).First(&tmpl, step.TemplateID).Error; err == nil {
		subject = tmpl.Subject
	}
	entry, err := s.logs.Record(ctx, &SendLogEntry{
		AutomationType: models.AutomationSequence,
		AutomationID:   enrollment.SequenceID,
		EnrollmentID:   &enrollment.ID,
		ContactEmail:   enrollment.ContactEmail,
		TemplateID:     &step.TemplateID,
		Subject:        subject,
		Status:         status,
		ErrorMessage:   errMsg,
	})
	if err != nil {
		s.logger.Warnf("enrollment %d: record send log: %v", enrollment.ID, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastSendLog(entry)
	}
}
