package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/deppfellow/foodgram-entrypoint/internal/model"
	"github.com/deppfellow/foodgram-entrypoint/internal/validation"
	"github.com/rs/zerolog"
)

// ErrDatasetNotFound is returned when the dataset file does not exist.
var ErrDatasetNotFound = errors.New("ingredient dataset not found")

// IngredientStore persists ingredients.
type IngredientStore interface {
	// InsertMissing stores every ingredient not stored yet and returns
	// the number of created rows.
	InsertMissing(ctx context.Context, items []model.Ingredient) (int, error)

	// Count returns the number of stored ingredients.
	Count(ctx context.Context) (int, error)
}

// LoadReport summarizes one dataset load.
type LoadReport struct {
	Path       string
	Read       int
	Duplicates int
	Created    int
	Total      int
}

// IngredientService loads the fixed ingredient dataset.
type IngredientService struct {
	store  IngredientStore
	logger *zerolog.Logger
}

func NewIngredientService(store IngredientStore, logger *zerolog.Logger) *IngredientService {
	return &IngredientService{store: store, logger: logger}
}

// Load reads the dataset at path and stores the ingredients that are
// missing. Loading the same file again creates nothing.
func (s *IngredientService) Load(ctx context.Context, path string) (LoadReport, error) {
	report := LoadReport{Path: path}

	items, err := ReadDataset(path)
	if err != nil {
		return report, err
	}
	report.Read = len(items)

	unique := Dedupe(items)
	report.Duplicates = len(items) - len(unique)

	created, err := s.store.InsertMissing(ctx, unique)
	if err != nil {
		return report, fmt.Errorf("storing ingredients: %w", err)
	}
	report.Created = created

	if report.Total, err = s.store.Count(ctx); err != nil {
		return report, fmt.Errorf("counting ingredients: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("read", report.Read).
		Int("duplicates", report.Duplicates).
		Int("created", report.Created).
		Int("total", report.Total).
		Msgf("ingredients loaded, %d new, %d total", report.Created, report.Total)

	return report, nil
}

// ReadDataset parses and validates the dataset at path.
//
// Files ending in .csv hold "name,measurement_unit" rows without header;
// everything else is a JSON array of {"name", "measurement_unit"} objects.
func ReadDataset(path string) ([]model.Ingredient, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrDatasetNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []model.Ingredient
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		items, err = DecodeCSV(f)
	} else {
		items, err = DecodeJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := Validate(items); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// DecodeJSON decodes a JSON array of ingredients.
func DecodeJSON(r io.Reader) ([]model.Ingredient, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var items []model.Ingredient
	if err := sonic.ConfigStd.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("malformed ingredient JSON: %w", err)
	}
	return items, nil
}

// DecodeCSV decodes "name,measurement_unit" rows.
func DecodeCSV(r io.Reader) ([]model.Ingredient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var items []model.Ingredient
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed ingredient CSV: %w", err)
		}
		items = append(items, model.Ingredient{
			Name:            strings.TrimSpace(record[0]),
			MeasurementUnit: strings.TrimSpace(record[1]),
		})
	}
}

// Validate checks every record and reports the first invalid one with its
// position in the dataset.
func Validate(items []model.Ingredient) error {
	for i, item := range items {
		if err := validation.Struct(item); err != nil {
			var fieldErrors errs.FieldErrors
			if errors.As(err, &fieldErrors) {
				return fmt.Errorf("ingredient #%d (%q): %w", i+1, item.Name, fieldErrors)
			}
			return err
		}
	}
	return nil
}

// Dedupe drops repeated (name, measurement_unit) pairs, keeping the first.
func Dedupe(items []model.Ingredient) []model.Ingredient {
	seen := make(map[[2]string]struct{}, len(items))
	out := make([]model.Ingredient, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Key()]; ok {
			continue
		}
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}
	return out
}
