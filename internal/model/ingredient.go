// Package model holds the records the bootstrapper writes to the database.
package model

// Ingredient is one row of the ingredient dataset.
//
// The (Name, MeasurementUnit) pair identifies an ingredient. Both columns
// are varchar(200) in the application's schema.
type Ingredient struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

// Key returns the identity of the ingredient.
func (i Ingredient) Key() [2]string {
	return [2]string{i.Name, i.MeasurementUnit}
}
