package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inboxcrm/internal/models"

	"gorm.io/gorm"
)

// TemplateService manages email templates and renders previews against a
// sample merge context.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// TemplateCreateRequest creates a template.
type TemplateCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
}

// TemplateUpdateRequest patches a template.
type TemplateUpdateRequest struct {
	Name     *string `json:"name"`
	Subject  *string `json:"subject"`
	BodyHTML *string `json:"body_html"`
	BodyText *string `json:"body_text"`
	IsActive *bool   `json:"is_active"`
}

// TemplatePreview is a template rendered against a merge context.
type TemplatePreview struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
}

func (s *TemplateService) List(ctx context.Context) ([]models.EmailTemplate, error) {
	var templates []models.EmailTemplate
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *TemplateService) Get(ctx context.Context, id uint) (*models.EmailTemplate, error) {
	var tmpl models.EmailTemplate
	if err := s.db.WithContext(ctx).First(&tmpl, id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *TemplateService) Create(ctx context.Context, req *TemplateCreateRequest) (*models.EmailTemplate, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	tmpl := &models.EmailTemplate{
		Name:        req.Name,
		Subject:     req.Subject,
		BodyHTML:    req.BodyHTML,
		BodyText:    req.BodyText,
		MergeFields: usedMergeFields(req.Subject + "\n" + req.BodyHTML + "\n" + req.BodyText),
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *TemplateService) Update(ctx context.Context, id uint, req *TemplateUpdateRequest) (*models.EmailTemplate, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var tmpl models.EmailTemplate
	if err := s.db.WithContext(ctx).First(&tmpl, id).Error; err != nil {
		return nil, err
	}
	if req.Name != nil {
		tmpl.Name = *req.Name
	}
	if req.Subject != nil {
		tmpl.Subject = *req.Subject
	}
	if req.BodyHTML != nil {
		tmpl.BodyHTML = *req.BodyHTML
	}
	if req.BodyText != nil {
		tmpl.BodyText = *req.BodyText
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}
	tmpl.MergeFields = usedMergeFields(tmpl.Subject + "\n" + tmpl.BodyHTML + "\n" + tmpl.BodyText)
	tmpl.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&tmpl).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.EmailTemplate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("template not found")
	}
	return nil
}

// Preview renders a template against the supplied merge context. Unresolved
// tokens stay visible so the operator can spot gaps.
func (s *TemplateService) Preview(ctx context.Context, id uint, mergeCtx MergeContext) (*TemplatePreview, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TemplatePreview{
		Subject:  ResolveMergeFields(tmpl.Subject, mergeCtx),
		BodyHTML: ResolveMergeFields(tmpl.BodyHTML, mergeCtx),
		BodyText: ResolveMergeFields(tmpl.BodyText, mergeCtx),
	}, nil
}

// usedMergeFields extracts the catalog entries whose tokens appear in the
// template content, stored alongside the template for the editor.
func usedMergeFields(content string) string {
	var used []MergeField
	for _, field := range MergeFieldCatalog {
		if strings.Contains(content, field.Token) {
			used = append(used, field)
		}
	}
	if used == nil {
		used = []MergeField{}
	}
	raw, _ := json.Marshal(used)
	return string(raw)
}
