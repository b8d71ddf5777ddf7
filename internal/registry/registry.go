// Package registry holds the static configuration surface of the CRM:
// the entity tables automation can be scoped to, their display metadata,
// and the ordered set of action types each table may attach. The tables
// are built once at init and never mutated; callers receive copies.
package registry

import "inboxcrm/internal/models"

// EntityConfig is the display metadata for one entity table.
type EntityConfig struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// EntityTables lists every entity table automation rules and sequences can
// be scoped to, in the order the UI presents them.
var EntityTables = []string{
	"people",
	"influencers",
	"resellers",
	"product_suppliers",
	"expense_suppliers",
	"corporate_management",
	"personal_contacts",
	"subscriptions",
	"marketing_sources",
	"merchant_accounts",
	"logistic_suppliers",
}

var entityConfig = map[string]EntityConfig{
	"people":               {Label: "People", Icon: "users", Color: "#3b82f6"},
	"influencers":          {Label: "Influencers", Icon: "star", Color: "#ec4899"},
	"resellers":            {Label: "Resellers", Icon: "store", Color: "#8b5cf6"},
	"product_suppliers":    {Label: "Product Suppliers", Icon: "package", Color: "#f59e0b"},
	"expense_suppliers":    {Label: "Expense Suppliers", Icon: "receipt", Color: "#ef4444"},
	"corporate_management": {Label: "Corporate Management", Icon: "briefcase", Color: "#6366f1"},
	"personal_contacts":    {Label: "Personal Contacts", Icon: "heart", Color: "#f97316"},
	"subscriptions":        {Label: "Subscriptions", Icon: "repeat", Color: "#14b8a6"},
	"marketing_sources":    {Label: "Marketing Sources", Icon: "megaphone", Color: "#84cc16"},
	"merchant_accounts":    {Label: "Merchant Accounts", Icon: "credit-card", Color: "#0ea5e9"},
	"logistic_suppliers":   {Label: "Logistic Suppliers", Icon: "truck", Color: "#a855f7"},
}

// actionAvailability maps each entity table to the ordered action types its
// rule may attach. Ordering matters: the UI lists actions in this order.
var actionAvailability = map[string][]models.ActionType{
	"people": {
		models.ActionTag, models.ActionVisibility, models.ActionAssignObjectType,
		models.ActionAssignEntity, models.ActionMarkPriority, models.ActionExtractAttach,
	},
	"influencers": {
		models.ActionTag, models.ActionVisibility, models.ActionMarkPriority,
		models.ActionExtractAttach, models.ActionMoveFolder,
	},
	"resellers": {
		models.ActionTag, models.ActionVisibility, models.ActionAssignObjectType,
		models.ActionMarkPriority, models.ActionExtractAttach,
	},
	"product_suppliers": {
		models.ActionTag, models.ActionVisibility, models.ActionExtractInvoice,
		models.ActionExtractAttach, models.ActionMoveFolder,
	},
	"expense_suppliers": {
		models.ActionTag, models.ActionVisibility, models.ActionExtractInvoice,
		models.ActionExtractAttach, models.ActionMoveFolder,
	},
	"corporate_management": {
		models.ActionTag, models.ActionVisibility, models.ActionAssignRole,
		models.ActionMarkPriority,
	},
	"personal_contacts": {
		models.ActionTag, models.ActionVisibility, models.ActionMoveFolder,
	},
	"subscriptions": {
		models.ActionTag, models.ActionVisibility, models.ActionExtractInvoice,
		models.ActionMoveFolder,
	},
	"marketing_sources": {
		models.ActionTag, models.ActionVisibility, models.ActionMarkPriority,
	},
	"merchant_accounts": {
		models.ActionTag, models.ActionVisibility, models.ActionExtractInvoice,
		models.ActionExtractAttach,
	},
	"logistic_suppliers": {
		models.ActionTag, models.ActionVisibility, models.ActionExtractInvoice,
		models.ActionExtractAttach, models.ActionMoveFolder,
	},
}

// KnownEntityTable reports whether table is part of the static registry.
func KnownEntityTable(table string) bool {
	_, ok := entityConfig[table]
	return ok
}

// Config returns the display metadata for an entity table. Unknown tables
// get a config whose label echoes the input, matching DisplayName.
func Config(table string) EntityConfig {
	if cfg, ok := entityConfig[table]; ok {
		return cfg
	}
	return EntityConfig{Label: table}
}

// DisplayName returns the human label for an entity table. Unknown tables
// echo the input unchanged; the empty table means "no scope" and reads as
// "All Contacts".
func DisplayName(table string) string {
	if table == "" {
		return "All Contacts"
	}
	if cfg, ok := entityConfig[table]; ok {
		return cfg.Label
	}
	return table
}

// AllowedActions returns the ordered action types an entity table's rule
// may attach. Unknown tables get nil. The returned slice is a copy.
func AllowedActions(table string) []models.ActionType {
	src, ok := actionAvailability[table]
	if !ok {
		return nil
	}
	out := make([]models.ActionType, len(src))
	copy(out, src)
	return out
}

// ActionAllowed reports whether an action type is in the allowed set for
// the given entity table.
func ActionAllowed(table string, t models.ActionType) bool {
	for _, allowed := range actionAvailability[table] {
		if allowed == t {
			return true
		}
	}
	return false
}
