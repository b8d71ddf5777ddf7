package services

import (
	"context"
	"errors"
	"time"

	"inboxcrm/internal/metrics"
	"inboxcrm/internal/models"
	"inboxcrm/pkg/utils"

	"gorm.io/gorm"
)

// Upstream SMTP errors can be arbitrarily long; keep log rows bounded.
const maxErrorMessageLen = 500

// SendLogService appends and queries the automation send log. Rows are
// append-only; a failed attempt gets a new row rather than an update, which
// is what the external worker's retry bookkeeping relies on.
type SendLogService struct {
	db *gorm.DB
}

func NewSendLogService(db *gorm.DB) *SendLogService {
	return &SendLogService{db: db}
}

// SendLogEntry is the payload for one send attempt.
type SendLogEntry struct {
	AutomationType string `json:"automation_type" binding:"required"`
	AutomationID   uint   `json:"automation_id"`
	EnrollmentID   *uint  `json:"enrollment_id"`
	ContactEmail   string `json:"contact_email" binding:"required"`
	TemplateID     *uint  `json:"template_id"`
	Subject        string `json:"subject"`
	Status         string `json:"status"`
	ErrorMessage   string `json:"error_message"`
}

// SendLogListRequest filters the paged log listing.
type SendLogListRequest struct {
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
	AutomationType string `form:"automation_type"`
	Status         string `form:"status"`
	EnrollmentID   uint   `form:"enrollment_id"`
}

// Record appends one send-log row.
func (s *SendLogService) Record(ctx context.Context, entry *SendLogEntry) (*models.AutomationSendLog, error) {
	if entry == nil {
		return nil, errors.New("entry required")
	}
	status := entry.Status
	if status == "" {
		status = models.SendPending
	}
	row := &models.AutomationSendLog{
		AutomationType: entry.AutomationType,
		AutomationID:   entry.AutomationID,
		EnrollmentID:   entry.EnrollmentID,
		ContactEmail:   utils.NormalizeEmail(entry.ContactEmail),
		TemplateID:     entry.TemplateID,
		Subject:        entry.Subject,
		Status:         status,
		ErrorMessage:   utils.TruncateString(entry.ErrorMessage, maxErrorMessageLen),
		CreatedAt:      time.Now(),
	}
	if status == models.SendSent {
		now := time.Now()
		row.SentAt = &now
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	metrics.IncSend(status)
	return row, nil
}

// List returns send-log rows newest first, filtered and paged.
func (s *SendLogService) List(ctx context.Context, req *SendLogListRequest) ([]models.AutomationSendLog, int64, error) {
	if req == nil {
		req = &SendLogListRequest{}
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := s.db.WithContext(ctx).Model(&models.AutomationSendLog{})
	if req.AutomationType != "" {
		query = query.Where("automation_type = ?", req.AutomationType)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.EnrollmentID != 0 {
		query = query.Where("enrollment_id = ?", req.EnrollmentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AutomationSendLog
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Stats counts log rows per status.
func (s *SendLogService) Stats(ctx context.Context) (map[string]int64, error) {
	type bucket struct {
		Status string
		Count  int64
	}
	var buckets []bucket
	err := s.db.WithContext(ctx).Model(&models.AutomationSendLog{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Status] = b.Count
	}
	return out, nil
}
