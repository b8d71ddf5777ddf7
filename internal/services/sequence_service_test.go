package services

import (
	"context"
	"testing"
	"time"

	"inboxcrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.EmailSequence{}, &models.SequenceStep{}, &models.SequenceEnrollment{},
		&models.EmailTemplate{}, &models.AutomationSendLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestSequenceCreate_UnknownEntityTable(t *testing.T) {
	db := newSequenceTestDB(t)
	svc := NewSequenceService(db, logrus.New())

	bad := "not_a_table"
	if _, err := svc.Create(context.Background(), &SequenceCreateRequest{Name: "x", EntityTable: &bad}); err == nil {
		t.Fatal("expected error for unknown entity table")
	}

	seq, err := svc.Create(context.Background(), &SequenceCreateRequest{Name: "Welcome"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !seq.IsActive {
		t.Error("new sequence should start active")
	}
	if seq.EntityTable != nil {
		t.Error("unscoped sequence should keep nil entity table")
	}
}

func TestAddStep_Validation(t *testing.T) {
	db := newSequenceTestDB(t)
	svc := NewSequenceService(db, logrus.New())
	seq, _ := svc.Create(context.Background(), &SequenceCreateRequest{Name: "Welcome"})

	cases := []struct {
		name string
		req  SequenceStepRequest
	}{
		{"zero step_order", SequenceStepRequest{StepOrder: 0, TemplateID: 1}},
		{"negative days", SequenceStepRequest{StepOrder: 1, TemplateID: 1, DelayDays: -1}},
		{"hours too large", SequenceStepRequest{StepOrder: 1, TemplateID: 1, DelayHours: 24}},
		{"negative hours", SequenceStepRequest{StepOrder: 1, TemplateID: 1, DelayHours: -1}},
	}
	for _, tc := range cases {
		if _, err := svc.AddStep(context.Background(), seq.ID, &tc.req); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestAddStep_DuplicateOrderRejected(t *testing.T) {
	db := newSequenceTestDB(t)
	svc := NewSequenceService(db, logrus.New())
	seq, _ := svc.Create(context.Background(), &SequenceCreateRequest{Name: "Welcome"})

	if _, err := svc.AddStep(context.Background(), seq.ID, &SequenceStepRequest{StepOrder: 1, TemplateID: 1}); err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if _, err := svc.AddStep(context.Background(), seq.ID, &SequenceStepRequest{StepOrder: 1, TemplateID: 2}); err == nil {
		t.Fatal("expected duplicate step_order to be rejected")
	}
	// Gaps are fine.
	if _, err := svc.AddStep(context.Background(), seq.ID, &SequenceStepRequest{StepOrder: 5, TemplateID: 2}); err != nil {
		t.Fatalf("gapped step_order should be allowed: %v", err)
	}
}

func TestGet_StepsOrderedByStepOrder(t *testing.T) {
	db := newSequenceTestDB(t)
	svc := NewSequenceService(db, logrus.New())
	seq, _ := svc.Create(context.Background(), &SequenceCreateRequest{Name: "Welcome"})

	for _, order := range []int{3, 1, 2} {
		if _, err := svc.AddStep(context.Background(), seq.ID, &SequenceStepRequest{StepOrder: order, TemplateID: uint(order)}); err != nil {
			t.Fatalf("AddStep %d: %v", order, err)
		}
	}
	got, err := svc.Get(context.Background(), seq.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, step := range got.Steps {
		if step.StepOrder != i+1 {
			t.Fatalf("step %d has order %d", i, step.StepOrder)
		}
	}
}

func TestStepDelay(t *testing.T) {
	step := models.SequenceStep{DelayDays: 2, DelayHours: 3}
	if got := StepDelay(step); got != 51*time.Hour {
		t.Fatalf("got %v, want 51h", got)
	}
	if got := StepDelay(models.SequenceStep{}); got != 0 {
		t.Fatalf("zero delay should be 0, got %v", got)
	}
}

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		days, hours int
		want        string
	}{
		{0, 0, "Immediately"},
		{1, 0, "1 day"},
		{2, 0, "2 days"},
		{0, 1, "1 hour"},
		{0, 2, "2 hours"},
		{3, 1, "3 days, 1 hour"},
		{2, 3, "2 days, 3 hours"},
		{1, 1, "1 day, 1 hour"},
	}
	for _, tt := range tests {
		if got := FormatDelay(tt.days, tt.hours); got != tt.want {
			t.Errorf("FormatDelay(%d, %d) = %q, want %q", tt.days, tt.hours, got, tt.want)
		}
	}
}
