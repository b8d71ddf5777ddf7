package models

import "time"

// ActionType is the closed set of effects an entity automation rule can
// attach. Each type has exactly one config shape (see services package).
type ActionType string

const (
	ActionVisibility       ActionType = "visibility"
	ActionTag              ActionType = "tag"
	ActionExtractAttach    ActionType = "extract_attachments"
	ActionExtractInvoice   ActionType = "extract_invoice"
	ActionMoveFolder       ActionType = "move_folder"
	ActionMarkPriority     ActionType = "mark_priority"
	ActionAssignObjectType ActionType = "assign_object_type"
	ActionAssignEntity     ActionType = "assign_entity"
	ActionAssignRole       ActionType = "assign_role"
)

// ActionTypes lists every known action type.
var ActionTypes = []ActionType{
	ActionVisibility,
	ActionTag,
	ActionExtractAttach,
	ActionExtractInvoice,
	ActionMoveFolder,
	ActionMarkPriority,
	ActionAssignObjectType,
	ActionAssignEntity,
	ActionAssignRole,
}

// KnownActionType reports whether t is a member of the closed enum.
func KnownActionType(t ActionType) bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EntityAutomationRule governs incoming-email automation for one entity
// table. Exactly one rule exists per entity table; rules are deactivated,
// never hard-deleted.
type EntityAutomationRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EntityTable string    `gorm:"uniqueIndex;not null" json:"entity_table"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Actions []RuleAction `gorm:"foreignKey:EntityRuleID" json:"actions,omitempty"`
}

// RuleAction is one configured effect attached to an entity automation
// rule. Config holds the JSON payload for the action type; its shape is
// validated against the type before persistence.
type RuleAction struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EntityRuleID uint       `gorm:"index;not null" json:"entity_rule_id"`
	ActionType   ActionType `gorm:"not null" json:"action_type"`
	Config       string     `gorm:"type:text" json:"config"` // JSON, shape keyed by ActionType
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
