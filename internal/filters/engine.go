// Package filters decides whether a parsed release candidate should be
// downloaded. Rules are evaluated first-match-wins; a candidate no rule
// matches is rejected.
package filters

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/utils"
)

// Decision is the outcome of evaluating one candidate
type Decision struct {
	Accept   bool
	Reason   string
	RuleID   uint64
	RuleName string
}

// Engine evaluates filter rules against candidates. It holds no state
// beyond a logger; rules are passed per call so a cycle always sees the
// current database contents.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates a filter engine
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

// Evaluate applies the rules to a candidate. Rules are ordered by
// priority descending, show-scoped before global on equal priority, then
// insertion order. The first rule whose predicate matches decides; if no
// rule matches the candidate is rejected.
func (e *Engine) Evaluate(cand *models.Candidate, show *models.Show, rules []models.FilterRule) Decision {
	ordered := orderRules(rules)

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}
		if rule.ShowID != 0 && rule.ShowID != show.ID {
			continue
		}

		matched, err := e.matches(&rule, cand, show)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"rule":  rule.Name,
				"error": err,
			}).Warn("Skipping filter rule with invalid pattern")
			continue
		}
		if !matched {
			continue
		}

		if rule.Action == models.ActionAccept {
			return Decision{Accept: true, Reason: "accepted by rule " + rule.Name, RuleID: rule.ID, RuleName: rule.Name}
		}
		return Decision{Accept: false, Reason: "rejected by rule " + rule.Name, RuleID: rule.ID, RuleName: rule.Name}
	}

	return Decision{Accept: false, Reason: "no matching rule"}
}

// orderRules sorts a copy of the rules into evaluation order
func orderRules(rules []models.FilterRule) []models.FilterRule {
	ordered := make([]models.FilterRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		// Show-scoped rules win ties against global ones
		iScoped := ordered[i].ShowID != 0
		jScoped := ordered[j].ShowID != 0
		if iScoped != jScoped {
			return iScoped
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func (e *Engine) matches(rule *models.FilterRule, cand *models.Candidate, show *models.Show) (bool, error) {
	value := fieldValue(rule.Field, cand)

	switch rule.Op {
	case models.OpEquals:
		return strings.EqualFold(value, rule.Pattern), nil
	case models.OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(rule.Pattern)), nil
	case models.OpMatches:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", rule.Pattern, err)
		}
		return re.MatchString(value), nil
	case models.OpAtLeast:
		// at_least only makes sense for resolutions. An empty pattern
		// means the show's own minimum quality.
		floor := rule.Pattern
		if floor == "" {
			floor = show.Quality
		}
		return utils.ResolutionHeight(cand.Resolution) >= utils.ResolutionHeight(floor), nil
	default:
		return false, fmt.Errorf("unknown filter op %q", rule.Op)
	}
}

func fieldValue(field models.FilterField, cand *models.Candidate) string {
	switch field {
	case models.FieldTitle:
		return cand.Title
	case models.FieldGroup:
		return cand.Group
	case models.FieldResolution:
		return cand.Resolution
	default:
		return ""
	}
}
