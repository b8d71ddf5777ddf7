package services

import (
	"context"
	"errors"
	"testing"

	"inboxcrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTriggerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.EmailTrigger{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestTriggerCreate_Validation(t *testing.T) {
	db := newTriggerTestDB(t)
	svc := NewTriggerService(db, logrus.New())
	ctx := context.Background()

	if _, err := svc.Create(ctx, &TriggerRequest{TriggerType: "comet_sighted", TemplateID: 1}); err == nil {
		t.Error("expected error for unsupported trigger type")
	}
	if _, err := svc.Create(ctx, &TriggerRequest{TriggerType: "email_received", EntityTable: "nope", TemplateID: 1}); err == nil {
		t.Error("expected error for unknown entity table")
	}
	if _, err := svc.Create(ctx, &TriggerRequest{TriggerType: "email_received", TemplateID: 1, DelayMinutes: -5}); err == nil {
		t.Error("expected error for negative delay")
	}

	trigger, err := svc.Create(ctx, &TriggerRequest{TriggerType: "record_created", EntityTable: "people", TemplateID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if trigger.Conditions != "{}" {
		t.Errorf("nil conditions should persist as empty object, got %s", trigger.Conditions)
	}
	if !trigger.IsActive {
		t.Error("trigger should default to active")
	}
}

func TestTriggerCreate_RejectsMixedConditions(t *testing.T) {
	db := newTriggerTestDB(t)
	svc := NewTriggerService(db, logrus.New())

	mixed := &TriggerCondition{
		Field:    "status",
		Operator: "equals",
		Value:    "new",
		AndConditions: []TriggerCondition{
			{Field: "source", Operator: "equals", Value: "web"},
		},
	}
	_, err := svc.Create(context.Background(), &TriggerRequest{
		TriggerType: "record_created",
		TemplateID:  1,
		Conditions:  mixed,
	})
	if !errors.Is(err, ErrInvalidCondition) {
		t.Fatalf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    TriggerCondition
		wantErr bool
	}{
		{"empty node", TriggerCondition{}, false},
		{"valid leaf", TriggerCondition{Field: "status", Operator: "equals", Value: "new"}, false},
		{"leaf missing operator", TriggerCondition{Field: "status"}, true},
		{"leaf missing field", TriggerCondition{Operator: "equals", Value: "x"}, true},
		{"bad operator", TriggerCondition{Field: "status", Operator: "regex", Value: "x"}, true},
		{"and combinator", TriggerCondition{AndConditions: []TriggerCondition{
			{Field: "a", Operator: "is_empty"},
		}}, false},
		{"both combinators", TriggerCondition{
			AndConditions: []TriggerCondition{{Field: "a", Operator: "is_empty"}},
			OrConditions:  []TriggerCondition{{Field: "b", Operator: "is_empty"}},
		}, true},
		{"invalid nested child", TriggerCondition{OrConditions: []TriggerCondition{
			{Field: "a", Operator: "nope"},
		}}, true},
	}
	for _, tt := range tests {
		err := ValidateCondition(tt.cond)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestEvaluateCondition_Operators(t *testing.T) {
	record := map[string]string{"status": "new", "subject": "Invoice #42", "note": ""}
	tests := []struct {
		field, op, value string
		want             bool
	}{
		{"status", "equals", "new", true},
		{"status", "equals", "old", false},
		{"status", "not_equals", "old", true},
		{"subject", "contains", "Invoice", true},
		{"subject", "contains", "Receipt", false},
		{"subject", "not_contains", "Receipt", true},
		{"note", "is_empty", "", true},
		{"missing_field", "is_empty", "", true},
		{"status", "is_not_empty", "", true},
		{"note", "is_not_empty", "", false},
	}
	for _, tt := range tests {
		cond := TriggerCondition{Field: tt.field, Operator: tt.op, Value: tt.value}
		if got := EvaluateCondition(cond, record); got != tt.want {
			t.Errorf("%s %s %q = %v, want %v", tt.field, tt.op, tt.value, got, tt.want)
		}
	}
}

func TestEvaluateCondition_Combinators(t *testing.T) {
	record := map[string]string{"status": "new", "source": "web"}

	and := TriggerCondition{AndConditions: []TriggerCondition{
		{Field: "status", Operator: "equals", Value: "new"},
		{Field: "source", Operator: "equals", Value: "web"},
	}}
	if !EvaluateCondition(and, record) {
		t.Error("all-true AND should match")
	}
	and.AndConditions[1].Value = "phone"
	if EvaluateCondition(and, record) {
		t.Error("AND with one false child should not match")
	}

	or := TriggerCondition{OrConditions: []TriggerCondition{
		{Field: "status", Operator: "equals", Value: "old"},
		{Field: "source", Operator: "equals", Value: "web"},
	}}
	if !EvaluateCondition(or, record) {
		t.Error("OR with one true child should match")
	}
	or.OrConditions[1].Value = "phone"
	if EvaluateCondition(or, record) {
		t.Error("all-false OR should not match")
	}
}

func TestEvaluateCondition_EmptyMatchesEverything(t *testing.T) {
	if !EvaluateCondition(TriggerCondition{}, map[string]string{"anything": "x"}) {
		t.Error("empty condition should match")
	}
	if !EvaluateCondition(TriggerCondition{}, nil) {
		t.Error("empty condition should match nil record")
	}
}

func TestEvaluateCondition_Nested(t *testing.T) {
	// status == new AND (source == web OR source == referral)
	cond := TriggerCondition{AndConditions: []TriggerCondition{
		{Field: "status", Operator: "equals", Value: "new"},
		{OrConditions: []TriggerCondition{
			{Field: "source", Operator: "equals", Value: "web"},
			{Field: "source", Operator: "equals", Value: "referral"},
		}},
	}}
	if !EvaluateCondition(cond, map[string]string{"status": "new", "source": "referral"}) {
		t.Error("nested tree should match")
	}
	if EvaluateCondition(cond, map[string]string{"status": "new", "source": "phone"}) {
		t.Error("nested tree should not match unknown source")
	}
}

func TestMatches_FailsClosedOnBadJSON(t *testing.T) {
	db := newTriggerTestDB(t)
	svc := NewTriggerService(db, logrus.New())

	trigger := models.EmailTrigger{Conditions: "{not json"}
	if svc.Matches(trigger, map[string]string{}) {
		t.Error("malformed conditions must fail closed")
	}

	trigger.Conditions = ""
	if !svc.Matches(trigger, map[string]string{}) {
		t.Error("empty conditions string matches everything")
	}
}

func TestTriggerToggleAndDelete(t *testing.T) {
	db := newTriggerTestDB(t)
	svc := NewTriggerService(db, logrus.New())
	ctx := context.Background()

	trigger, err := svc.Create(ctx, &TriggerRequest{TriggerType: "email_received", TemplateID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	off, err := svc.Toggle(ctx, trigger.ID, false)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if off.IsActive {
		t.Error("expected inactive")
	}
	if err := svc.Delete(ctx, trigger.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, trigger.ID); err == nil {
		t.Fatal("expected not-found on second delete")
	}
}
