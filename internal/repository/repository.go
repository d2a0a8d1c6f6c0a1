// Package repository handles all interactions with the database made by
// native stages.
//
// It contains raw SQL and abstracts it away from the service layer.
package repository
