package seed

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"crowdfund/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCategoryNameLen = 15

//go:embed categories.yml
var builtInCategoriesYAML []byte

// BuiltInCategory is one entry of the category fixture.
type BuiltInCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseCategories decodes a YAML list of categories and rejects names the
// schema could not store.
func ParseCategories(raw []byte) ([]BuiltInCategory, error) {
	var items []BuiltInCategory
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	seen := make(map[string]bool, len(items))
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		name := items[i].Name
		switch {
		case name == "":
			return nil, fmt.Errorf("category %d: name is required", i)
		case utf8.RuneCountInString(name) > maxCategoryNameLen:
			return nil, fmt.Errorf("category %q: name longer than %d characters", name, maxCategoryNameLen)
		case seen[name]:
			return nil, fmt.Errorf("category %q: duplicate name", name)
		}
		seen[name] = true
	}
	return items, nil
}

// BuiltInCategories returns the embedded fixture.
func BuiltInCategories() ([]BuiltInCategory, error) {
	return ParseCategories(builtInCategoriesYAML)
}

// Categories upserts items by name, refreshing descriptions of existing rows.
func Categories(db *gorm.DB, items []BuiltInCategory) ([]models.Category, error) {
	out := make([]models.Category, 0, len(items))
	for _, item := range items {
		category := models.Category{Name: item.Name, Description: item.Description}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description"}),
		}).Create(&category).Error; err != nil {
			return nil, fmt.Errorf("seed category %s: %w", item.Name, err)
		}

		if err := db.Where("name = ?", item.Name).First(&category).Error; err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, nil
}
