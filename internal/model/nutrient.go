package model

// NutrientRecord is the nutrient reference entry for one canonical ingredient.
// Macros are given per ReferenceAmount of ReferenceUnit (e.g. per 100 g).
type NutrientRecord struct {
	ID              uint    `gorm:"primaryKey" json:"-"`
	Key             string  `gorm:"size:255;not null;uniqueIndex" json:"key" yaml:"key"`
	ReferenceAmount float64 `gorm:"not null" json:"reference_amount" yaml:"reference_amount"`
	ReferenceUnit   string  `gorm:"size:20;not null" json:"reference_unit" yaml:"reference_unit"`
	// Density in grams per millilitre; zero when unknown.
	Density float64 `json:"density,omitempty" yaml:"density,omitempty"`
	Macros  `gorm:"embedded" yaml:",inline"`
}

func (NutrientRecord) TableName() string {
	return "nutrient_records"
}
