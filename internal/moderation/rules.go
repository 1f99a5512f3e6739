package moderation

import (
	"regexp"
	"strings"

	"github.com/gosuda/gofer/internal/domain"
)

// Rule is one moderation category. A rule matches when any keyword appears as
// a whole word (or phrase) in the normalized text, or any pattern matches.
type Rule struct {
	Category string
	Verdict  domain.ModerationStatus
	Reason   string
	Keywords []string
	Patterns []string
}

type compiledRule struct {
	Rule
	re []*regexp.Regexp
}

func compile(r Rule) compiledRule {
	c := compiledRule{Rule: r}
	if len(r.Keywords) > 0 {
		quoted := make([]string, len(r.Keywords))
		for i, k := range r.Keywords {
			quoted[i] = regexp.QuoteMeta(normalize(k))
		}
		c.re = append(c.re, regexp.MustCompile(`\b(?:`+strings.Join(quoted, "|")+`)\b`))
	}
	for _, p := range r.Patterns {
		c.re = append(c.re, regexp.MustCompile(p))
	}
	return c
}

func (c compiledRule) match(text string) bool {
	for _, re := range c.re {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DefaultRules is checked in order; the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: "sexual_content",
			Verdict:  domain.ModerationBlocked,
			Reason:   "sexual content is not allowed",
			Keywords: []string{
				"sex", "sexual", "sexy", "nude", "nudes", "naked", "porn", "escort",
				"hookup", "hook up", "onlyfans", "sugar daddy", "sugar baby", "nsfw",
			},
		},
		{
			Category: "violence_weapons",
			Verdict:  domain.ModerationBlocked,
			Reason:   "weapons or violence are not allowed",
			Keywords: []string{
				"gun", "guns", "firearm", "firearms", "pistol", "rifle", "shotgun",
				"ammo", "ammunition", "bullets", "machete", "switchblade", "taser",
				"explosive", "explosives", "pipe bomb", "grenade", "beat up", "hurt someone",
				"rough up",
			},
			Patterns: []string{`\bkill(?:ing)? (?:him|her|them|someone|somebody)\b`},
		},
		{
			Category: "illegal_activity",
			Verdict:  domain.ModerationBlocked,
			Reason:   "illegal substances or activities are not allowed",
			Keywords: []string{
				"weed", "marijuana", "cannabis", "cocaine", "meth", "heroin",
				"fentanyl", "lsd", "mdma", "ecstasy", "xanax", "adderall",
				"fake id", "fake ids", "shoplift", "shoplifting", "steal",
				"break into", "counterfeit",
			},
		},
		{
			Category: "hate_speech",
			Verdict:  domain.ModerationBlocked,
			Reason:   "hateful content is not allowed",
			Keywords: []string{
				"nazi", "heil", "white power", "ethnic cleansing", "kkk",
				"go back to your country", "hate crime",
			},
		},
		{
			Category: "academic_integrity",
			Verdict:  domain.ModerationNeedsReview,
			Reason:   "possible academic dishonesty; held for review",
			Keywords: []string{
				"write my essay", "write my paper", "do my homework", "take my exam",
				"take my quiz", "take my test", "exam answers", "test answers",
				"do my assignment", "ghostwrite",
			},
			Patterns: []string{`\b(?:take|sit) (?:my|an|the) (?:online )?(?:exam|quiz|test|midterm|final)\b`},
		},
		{
			Category: "spam",
			Verdict:  domain.ModerationNeedsReview,
			Reason:   "looks like spam or a scam; held for review",
			Keywords: []string{
				"click here", "free money", "guaranteed income", "work from home",
				"crypto giveaway", "bitcoin giveaway", "wire transfer", "gift card codes",
				"cash app flip",
			},
			Patterns: []string{`\b(?:https? )?(?:www )?bit ly\b`},
		},
	}
}
