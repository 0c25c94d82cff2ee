/*
category.go - Service-to-category classification

PURPOSE:
  Maps raw service names ("Reels", "Съемка", "Target ads") onto a small set
  of cost categories via a prioritized keyword rule table. Keyword lists are
  data, not control flow: new categories or keywords need a new rule table
  (see factory package), not code changes.

MATCHING:
  Case-insensitive substring match against each rule's keyword list, rules
  evaluated in order, first match wins. Keyword lists carry both English and
  Russian terms because the agency's service names mix languages freely.
  Fallback category is "content".

SEE ALSO:
  - factory/rules.go: JSON rule table parsing
  - sync.go: Tags every merged dynamic expense with its category
*/
package finance

import (
	"context"
	"sort"
	"strings"
)

// =============================================================================
// BUILT-IN CATEGORIES
// =============================================================================

const (
	CategoryContent    CategoryID = "content"
	CategoryProduction CategoryID = "production"
	CategoryPaidMedia  CategoryID = "paid-media"
	CategoryWeb        CategoryID = "web"
)

// BuiltinCategories is the legacy four-category set used when no category
// configuration source is wired or it returns nothing.
func BuiltinCategories() []Category {
	return []Category{
		{ID: CategoryContent, Name: "Content", Icon: "edit", SortOrder: 1},
		{ID: CategoryProduction, Name: "Production", Icon: "camera", SortOrder: 2},
		{ID: CategoryPaidMedia, Name: "Paid media", Icon: "trending-up", SortOrder: 3},
		{ID: CategoryWeb, Name: "Web", Icon: "globe", SortOrder: 4},
	}
}

// =============================================================================
// RULE TABLE
// =============================================================================

// CategoryRule maps any service name containing one of Keywords onto
// Category. Rules are evaluated in slice order; ties are impossible by
// construction.
type CategoryRule struct {
	Keywords []string
	Category CategoryID
}

// DefaultRules is the built-in prioritized rule table. Production and
// paid-media terms come first because they are the more specific signals;
// generic posting terms would otherwise swallow "reels editing".
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{
			Category: CategoryProduction,
			Keywords: []string{
				"film", "shoot", "edit", "montage", "studio",
				"съем", "съёмк", "монтаж", "видеограф", "оператор",
			},
		},
		{
			Category: CategoryPaidMedia,
			Keywords: []string{
				"target", "ads", "advert", "campaign", "promo",
				"таргет", "реклам", "продвижен",
			},
		},
		{
			Category: CategoryWeb,
			Keywords: []string{
				"site", "landing", "web", "page",
				"сайт", "лендинг", "верстк",
			},
		},
		{
			Category: CategoryContent,
			Keywords: []string{
				"post", "stories", "reels", "copy", "text", "smm", "content",
				"пост", "сторис", "рилс", "текст", "контент",
			},
		},
	}
}

// =============================================================================
// CATEGORY REGISTRY
// =============================================================================

// CategoryRegistry classifies service names and lists configured categories.
type CategoryRegistry struct {
	Rules  []CategoryRule
	Source CategorySource // optional
}

// NewCategoryRegistry builds a registry over the default rule table.
func NewCategoryRegistry(source CategorySource) *CategoryRegistry {
	return &CategoryRegistry{Rules: DefaultRules(), Source: source}
}

// CategoryFor classifies a service name. First matching rule wins; unmatched
// names fall back to the content category.
func (cr *CategoryRegistry) CategoryFor(serviceName string) CategoryID {
	name := strings.ToLower(serviceName)
	for _, rule := range cr.rules() {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}
	return CategoryContent
}

// AllCategories returns the configured category list ordered by sort order,
// falling back to the built-in four when the source is absent or empty.
func (cr *CategoryRegistry) AllCategories(ctx context.Context) []Category {
	if cr.Source != nil {
		cats, err := cr.Source.Categories(ctx)
		if err == nil && len(cats) > 0 {
			sort.SliceStable(cats, func(i, j int) bool { return cats[i].SortOrder < cats[j].SortOrder })
			return cats
		}
	}
	return BuiltinCategories()
}

func (cr *CategoryRegistry) rules() []CategoryRule {
	if len(cr.Rules) == 0 {
		return DefaultRules()
	}
	return cr.Rules
}
