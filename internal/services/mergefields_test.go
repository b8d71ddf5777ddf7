package services

import (
	"strings"
	"testing"
)

func TestResolveMergeFields_Basic(t *testing.T) {
	ctx := MergeContext{
		Person: map[string]string{"first_name": "Ann", "email": "ann@example.com"},
		Sender: map[string]string{"name": "Support"},
	}
	got := ResolveMergeFields("Hello {{person.first_name}}, from {{sender.name}}", ctx)
	want := "Hello Ann, from Support"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveMergeFields_MissingFieldPassesThrough(t *testing.T) {
	ctx := MergeContext{Person: map[string]string{"first_name": "Ann"}}
	got := ResolveMergeFields("Hi {{person.last_name}}", ctx)
	if got != "Hi {{person.last_name}}" {
		t.Fatalf("expected unresolved token to pass through, got %q", got)
	}
}

func TestResolveMergeFields_UnknownCategoryPassesThrough(t *testing.T) {
	got := ResolveMergeFields("{{widget.size}}", MergeContext{})
	if got != "{{widget.size}}" {
		t.Fatalf("expected unknown category to pass through, got %q", got)
	}
}

func TestResolveMergeFields_CurrentDateIgnoresField(t *testing.T) {
	ctx := MergeContext{CurrentDate: "2026-08-29"}
	for _, tpl := range []string{"{{current_date.short}}", "{{current_date.whatever}}"} {
		if got := ResolveMergeFields(tpl, ctx); got != "2026-08-29" {
			t.Errorf("ResolveMergeFields(%q) = %q, want 2026-08-29", tpl, got)
		}
	}
}

func TestResolveMergeFields_CurrentDateEmptyPassesThrough(t *testing.T) {
	got := ResolveMergeFields("{{current_date.short}}", MergeContext{})
	if got != "{{current_date.short}}" {
		t.Fatalf("expected token to pass through when no date set, got %q", got)
	}
}

func TestResolveMergeFields_Idempotent(t *testing.T) {
	ctx := MergeContext{
		Person:      map[string]string{"first_name": "Ann", "company": "Acme"},
		CurrentDate: "2026-08-29",
	}
	tpl := "{{person.first_name}} at {{person.company}} on {{current_date.short}}, missing {{entity.name}}"
	once := ResolveMergeFields(tpl, ctx)
	twice := ResolveMergeFields(once, ctx)
	if once != twice {
		t.Fatalf("resolution not idempotent: %q vs %q", once, twice)
	}
}

func TestResolveMergeFields_NoTokens(t *testing.T) {
	in := "plain text with {single} braces"
	if got := ResolveMergeFields(in, MergeContext{}); got != in {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestMergeFieldCatalog_TokensWellFormed(t *testing.T) {
	for _, f := range MergeFieldCatalog {
		if !mergeTokenRe.MatchString(f.Token) {
			t.Errorf("catalog token %q does not match the token syntax", f.Token)
		}
		if f.Label == "" || f.Category == "" {
			t.Errorf("catalog entry %q missing label or category", f.Token)
		}
		if !strings.HasPrefix(f.Token, "{{") || !strings.HasSuffix(f.Token, "}}") {
			t.Errorf("catalog token %q not brace-delimited", f.Token)
		}
	}
}
