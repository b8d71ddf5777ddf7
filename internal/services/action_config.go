package services

import (
	"encoding/json"
	"fmt"

	"inboxcrm/internal/models"
)

// Typed config payloads per action type. Each RuleAction's Config column
// holds exactly one of these shapes, keyed by its ActionType; action types
// without parameters persist an empty object.

// TagActionConfig applies one or more tags to the matched email.
type TagActionConfig struct {
	TagIDs []string `json:"tag_ids"`
}

// VisibilityActionConfig restricts the email to a visibility group.
type VisibilityActionConfig struct {
	VisibilityGroupID string `json:"visibility_group_id"`
}

// AssignObjectTypeActionConfig links the email to CRM object types.
type AssignObjectTypeActionConfig struct {
	ObjectTypeIDs  []string `json:"object_type_ids"`
	AssignToPerson bool     `json:"assign_to_person"`
	AssignToEmail  bool     `json:"assign_to_email"`
}

// AssignEntityActionConfig files the sender under an entity of the given
// type, optionally creating it.
type AssignEntityActionConfig struct {
	EntityType        string `json:"entity_type"` // influencer, reseller, supplier
	CreateIfNotExists bool   `json:"create_if_not_exists"`
}

// MarkPriorityActionConfig flags the email with a priority level.
type MarkPriorityActionConfig struct {
	Priority string `json:"priority"` // high, normal, low
}

var assignEntityTypes = []string{"influencer", "reseller", "supplier"}
var priorityLevels = []string{"high", "normal", "low"}

// DefaultActionConfig returns the minimal valid JSON config for an action
// type. Types without parameters, and unknown types, get an empty object.
func DefaultActionConfig(t models.ActionType) string {
	var cfg interface{}
	switch t {
	case models.ActionTag:
		cfg = TagActionConfig{TagIDs: []string{}}
	case models.ActionVisibility:
		cfg = VisibilityActionConfig{}
	case models.ActionAssignObjectType:
		cfg = AssignObjectTypeActionConfig{ObjectTypeIDs: []string{}}
	case models.ActionAssignEntity:
		cfg = AssignEntityActionConfig{EntityType: "influencer"}
	case models.ActionMarkPriority:
		cfg = MarkPriorityActionConfig{Priority: "normal"}
	default:
		return "{}"
	}
	raw, _ := json.Marshal(cfg)
	return string(raw)
}

// NormalizeActionConfig validates raw against the config shape of t and
// returns the canonical JSON to persist. Unknown keys are dropped, missing
// keys fall back to defaults, and enum-valued fields are checked. An empty
// raw is treated as "use defaults".
func NormalizeActionConfig(t models.ActionType, raw string) (string, error) {
	if raw == "" {
		return DefaultActionConfig(t), nil
	}
	switch t {
	case models.ActionTag:
		var cfg TagActionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("invalid tag config: %w", err)
		}
		if cfg.TagIDs == nil {
			cfg.TagIDs = []string{}
		}
		return marshalConfig(cfg)
	case models.ActionVisibility:
		var cfg VisibilityActionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("invalid visibility config: %w", err)
		}
		return marshalConfig(cfg)
	case models.ActionAssignObjectType:
		var cfg AssignObjectTypeActionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("invalid assign_object_type config: %w", err)
		}
		if cfg.ObjectTypeIDs == nil {
			cfg.ObjectTypeIDs = []string{}
		}
		return marshalConfig(cfg)
	case models.ActionAssignEntity:
		var cfg AssignEntityActionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("invalid assign_entity config: %w", err)
		}
		if cfg.EntityType == "" {
			cfg.EntityType = "influencer"
		}
		if !inStrings(cfg.EntityType, assignEntityTypes) {
			return "", fmt.Errorf("invalid entity_type: %s", cfg.EntityType)
		}
		return marshalConfig(cfg)
	case models.ActionMarkPriority:
		var cfg MarkPriorityActionConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return "", fmt.Errorf("invalid mark_priority config: %w", err)
		}
		if cfg.Priority == "" {
			cfg.Priority = "normal"
		}
		if !inStrings(cfg.Priority, priorityLevels) {
			return "", fmt.Errorf("invalid priority: %s", cfg.Priority)
		}
		return marshalConfig(cfg)
	default:
		// Parameterless types keep an empty object regardless of input.
		if !json.Valid([]byte(raw)) {
			return "", fmt.Errorf("invalid config json")
		}
		return "{}", nil
	}
}

func marshalConfig(cfg interface{}) (string, error) {
	out, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func inStrings(needle string, hay []string) bool {
	for _, s := range hay {
		if needle == s {
			return true
		}
	}
	return false
}
