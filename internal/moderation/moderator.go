// Package moderation screens task text before it is persisted.
// Moderate is pure: no I/O, deterministic, safe for concurrent use.
package moderation

import (
	"strings"

	"github.com/gosuda/gofer/internal/domain"
)

// Verdict is the outcome of a moderation check. Category and Reason are empty
// for approved content.
type Verdict struct {
	Status   domain.ModerationStatus
	Category string
	Reason   string
}

// Approved reports whether the content passed without flags.
func (v Verdict) Approved() bool {
	return v.Status == domain.ModerationApproved
}

type Moderator struct {
	rules []compiledRule
}

// New returns a Moderator with the default rule set.
func New() *Moderator {
	return NewWithRules(DefaultRules())
}

// NewWithRules compiles rules in priority order. It panics on an invalid
// pattern, since rules are fixed at startup.
func NewWithRules(rules []Rule) *Moderator {
	m := &Moderator{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		m.rules = append(m.rules, compile(r))
	}
	return m
}

// Moderate checks the free-text fields of a task.
func (m *Moderator) Moderate(f domain.TaskFields) Verdict {
	return m.ModerateText(f.Title, f.Description, f.DropoffInstructions, f.Store, f.DropoffAddress)
}

// ModerateText joins and normalizes the given fields and returns the verdict
// of the first matching rule.
func (m *Moderator) ModerateText(fields ...string) Verdict {
	texts := variants(strings.Join(fields, " "))
	for _, r := range m.rules {
		for _, text := range texts {
			if r.match(text) {
				return Verdict{Status: r.Verdict, Category: r.Category, Reason: r.Reason}
			}
		}
	}
	return Verdict{Status: domain.ModerationApproved}
}
