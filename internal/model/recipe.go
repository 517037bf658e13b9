package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Recipe is the read contract the engine needs from the recipe store.
// Only the cached nutrition columns are ever written by the engine.
type Recipe struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DeletedAt    gorm.DeletedAt     `gorm:"index" json:"-"`
	Name         string             `gorm:"size:255;not null" json:"name"`
	Cuisine      string             `gorm:"size:100;index" json:"cuisine"`
	DietaryType  string             `gorm:"size:100;index" json:"dietary_type"`
	CookingTime  int                `json:"cooking_time"`
	Ingredients  []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Instructions JSONBStringArray   `gorm:"type:jsonb;not null;default:'[]'" json:"instructions"`
	ImageURL     string             `gorm:"size:255" json:"image_url"`

	Nutrition NutritionSummary `gorm:"embedded;embeddedPrefix:nutrition_" json:"nutrition"`
	// NutritionTableVersion is "<table digest>.<ingredient fingerprint>" of the
	// cached summary; a change to either invalidates it.
	NutritionTableVersion string `gorm:"column:nutrition_table_version;size:64" json:"-"`
}

// BeforeCreate assigns an id when the caller did not.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IngredientNames returns the raw ingredient names in recipe order.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		names[i] = ing.Name
	}
	return names
}

// RecipeIngredient is one line of a recipe's ingredient list.
type RecipeIngredient struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position int       `gorm:"not null" json:"-"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Quantity *float64  `json:"quantity,omitempty"`
	Unit     string    `gorm:"size:50" json:"unit,omitempty"`
}

func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}
