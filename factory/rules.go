/*
Package factory provides JSON to Go conversion for category rule tables
and service rate cards.

PURPOSE:
  Converts JSON configuration into finance.CategoryRule lists and rate
  cards. This keeps classification keywords and pricing as data - account
  managers can add a category keyword or change a service rate without a
  code change.

JSON SCHEMA (rule table):
  {
    "rules": [
      {"category": "production", "keywords": ["film", "съем", "монтаж"]},
      {"category": "paid-media", "keywords": ["target", "таргет"]}
    ],
    "categories": [
      {"id": "production", "name": "Production", "icon": "camera", "sort_order": 2}
    ]
  }

JSON SCHEMA (rate card):
  {
    "rates": [
      {"service_id": "reels", "name": "Reels", "rate": "8000"},
      {"service_id": "stories", "name": "Stories", "rate": "1500"}
    ]
  }

Rules are evaluated in listed order; put the more specific keyword sets
first. Empty input falls back to finance.DefaultRules().

SEE ALSO:
  - finance/category.go: CategoryRule, CategoryRegistry
  - store/sqlite: Persists rate cards parsed here
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/finance-engine/finance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleTableJSON is the JSON representation of a category rule table.
type RuleTableJSON struct {
	Rules      []RuleJSON     `json:"rules"`
	Categories []CategoryJSON `json:"categories,omitempty"`
}

type RuleJSON struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

type CategoryJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// RateCardJSON is the JSON representation of a service rate card.
type RateCardJSON struct {
	Rates []RateJSON `json:"rates"`
}

type RateJSON struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	Rate      string `json:"rate"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON configuration to engine types.
type RuleFactory struct{}

func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRules parses a JSON rule table. An empty rules list falls back to
// the built-in defaults so a partially filled config never disables
// classification.
func (f *RuleFactory) ParseRules(jsonStr string) ([]finance.CategoryRule, error) {
	var rt RuleTableJSON
	if err := json.Unmarshal([]byte(jsonStr), &rt); err != nil {
		return nil, fmt.Errorf("failed to parse rule table JSON: %w", err)
	}
	if len(rt.Rules) == 0 {
		return finance.DefaultRules(), nil
	}

	rules := make([]finance.CategoryRule, 0, len(rt.Rules))
	for i, rj := range rt.Rules {
		if rj.Category == "" {
			return nil, fmt.Errorf("rule %d: missing category", i)
		}
		if len(rj.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): empty keyword list", i, rj.Category)
		}
		rules = append(rules, finance.CategoryRule{
			Category: finance.CategoryID(rj.Category),
			Keywords: rj.Keywords,
		})
	}
	return rules, nil
}

// ParseCategories parses the configured category list from a rule table
// document. Nil when absent; the registry falls back to built-ins.
func (f *RuleFactory) ParseCategories(jsonStr string) ([]finance.Category, error) {
	var rt RuleTableJSON
	if err := json.Unmarshal([]byte(jsonStr), &rt); err != nil {
		return nil, fmt.Errorf("failed to parse rule table JSON: %w", err)
	}
	cats := make([]finance.Category, 0, len(rt.Categories))
	for _, cj := range rt.Categories {
		cats = append(cats, finance.Category{
			ID:        finance.CategoryID(cj.ID),
			Name:      cj.Name,
			Icon:      cj.Icon,
			SortOrder: cj.SortOrder,
		})
	}
	return cats, nil
}

// ParseRateCard parses a JSON rate card into service id -> (name, rate).
func (f *RuleFactory) ParseRateCard(jsonStr string) (map[finance.ServiceID]finance.UsageEntry, error) {
	var rc RateCardJSON
	if err := json.Unmarshal([]byte(jsonStr), &rc); err != nil {
		return nil, fmt.Errorf("failed to parse rate card JSON: %w", err)
	}
	card := make(map[finance.ServiceID]finance.UsageEntry, len(rc.Rates))
	for i, rj := range rc.Rates {
		if rj.ServiceID == "" {
			return nil, fmt.Errorf("rate %d: missing service_id", i)
		}
		rate, err := finance.ParseMoney(rj.Rate)
		if err != nil {
			return nil, fmt.Errorf("rate %d (%s): %w", i, rj.ServiceID, err)
		}
		card[finance.ServiceID(rj.ServiceID)] = finance.UsageEntry{
			ServiceName: rj.Name,
			Rate:        rate,
		}
	}
	return card, nil
}
