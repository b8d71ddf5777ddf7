package services

import "regexp"

// MergeField is one entry of the static placeholder catalog shown in the
// template editor.
type MergeField struct {
	Token    string `json:"token"`
	Label    string `json:"label"`
	Category string `json:"category"` // person, entity, system
}

// MergeContext carries the values a template is resolved against. The slots
// are a closed set: person, entity and sender hold string fields addressed
// as {{slot.field}}, while current_date is a zero-arity slot: any
// {{current_date.x}} token resolves to it regardless of the field part.
type MergeContext struct {
	Person      map[string]string `json:"person,omitempty"`
	Entity      map[string]string `json:"entity,omitempty"`
	Sender      map[string]string `json:"sender,omitempty"`
	CurrentDate string            `json:"current_date,omitempty"`
}

// MergeFieldCatalog is the static list of placeholders templates may embed.
var MergeFieldCatalog = []MergeField{
	{Token: "{{person.first_name}}", Label: "First Name", Category: "person"},
	{Token: "{{person.last_name}}", Label: "Last Name", Category: "person"},
	{Token: "{{person.full_name}}", Label: "Full Name", Category: "person"},
	{Token: "{{person.email}}", Label: "Email Address", Category: "person"},
	{Token: "{{person.company}}", Label: "Company", Category: "person"},
	{Token: "{{entity.name}}", Label: "Entity Name", Category: "entity"},
	{Token: "{{entity.type}}", Label: "Entity Type", Category: "entity"},
	{Token: "{{sender.name}}", Label: "Sender Name", Category: "system"},
	{Token: "{{sender.email}}", Label: "Sender Email", Category: "system"},
	{Token: "{{current_date.short}}", Label: "Current Date", Category: "system"},
}

var mergeTokenRe = regexp.MustCompile(`\{\{(\w+)\.(\w+)\}\}`)

// ResolveMergeFields substitutes {{category.field}} tokens in template with
// values from ctx. Tokens whose category or field is missing pass through
// unchanged so the operator can see what did not resolve. The function never
// errors and is idempotent: resolved values contain no token syntax, so a
// second pass is a no-op.
func ResolveMergeFields(template string, ctx MergeContext) string {
	return mergeTokenRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := mergeTokenRe.FindStringSubmatch(match)
		category, field := sub[1], sub[2]

		if category == "current_date" {
			if ctx.CurrentDate == "" {
				return match
			}
			return ctx.CurrentDate
		}

		var slot map[string]string
		switch category {
		case "person":
			slot = ctx.Person
		case "entity":
			slot = ctx.Entity
		case "sender":
			slot = ctx.Sender
		default:
			return match
		}
		if val, ok := slot[field]; ok {
			return val
		}
		return match
	})
}
