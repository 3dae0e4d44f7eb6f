package models

import (
	"strings"
	"time"
)

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#007bff"

// Category is a user-owned spending category. Parent links form a forest.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;uniqueIndex:idx_categories_owner_name,priority:1" json:"owner_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_owner_name,priority:2" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#007bff'" json:"color"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryKey is the case-insensitive uniqueness key for a category name.
func CategoryKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// RuleSource records how a categorization rule came to exist.
type RuleSource string

const (
	RuleSourceUser    RuleSource = "user"
	RuleSourceLearned RuleSource = "learned"
	RuleSourceDefault RuleSource = "default"
)

// CategorizationRule maps a keyword (or regular expression) to a category.
// Lower Priority values are evaluated first; ties go to the older rule.
type CategorizationRule struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	OwnerID    uint       `gorm:"not null;uniqueIndex:idx_rules_owner_keyword_category,priority:1;index" json:"owner_id"`
	Keyword    string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_rules_owner_keyword_category,priority:2" json:"keyword"`
	CategoryID uint       `gorm:"not null;uniqueIndex:idx_rules_owner_keyword_category,priority:3" json:"category_id"`
	IsPattern  bool       `gorm:"not null;default:false" json:"is_pattern"`
	Priority   int        `gorm:"not null;default:1" json:"priority"`
	Active     bool       `gorm:"not null;default:true" json:"active"`
	Source     RuleSource `gorm:"type:varchar(20);not null;default:'user'" json:"source"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName keeps the table name stable regardless of gorm's pluralization.
func (CategorizationRule) TableName() string {
	return "categorization_rules"
}
