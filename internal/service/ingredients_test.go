package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/deppfellow/foodgram-entrypoint/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore mimics the repository's insert-if-missing semantics.
type memoryStore struct {
	rows  map[[2]string]struct{}
	calls int
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[[2]string]struct{}{}}
}

func (m *memoryStore) InsertMissing(_ context.Context, items []model.Ingredient) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	created := 0
	for _, item := range items {
		if _, ok := m.rows[item.Key()]; ok {
			continue
		}
		m.rows[item.Key()] = struct{}{}
		created++
	}
	return created, nil
}

func (m *memoryStore) Count(context.Context) (int, error) {
	return len(m.rows), nil
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const ingredientsJSON = `[
	{"name": "абрикосовое варенье", "measurement_unit": "г"},
	{"name": "авокадо", "measurement_unit": "шт."},
	{"name": "авокадо", "measurement_unit": "шт."},
	{"name": "ананас", "measurement_unit": "г"}
]`

func TestDecodeJSON(t *testing.T) {
	items, err := DecodeJSON(strings.NewReader(ingredientsJSON))
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, model.Ingredient{Name: "авокадо", MeasurementUnit: "шт."}, items[1])

	_, err = DecodeJSON(strings.NewReader(`{"name": "not an array"}`))
	assert.ErrorContains(t, err, "malformed ingredient JSON")
}

func TestDecodeCSV(t *testing.T) {
	items, err := DecodeCSV(strings.NewReader("абрикосовое варенье,г\n\"соль, морская\", г\n"))
	require.NoError(t, err)
	assert.Equal(t, []model.Ingredient{
		{Name: "абрикосовое варенье", MeasurementUnit: "г"},
		{Name: "соль, морская", MeasurementUnit: "г"},
	}, items)

	_, err = DecodeCSV(strings.NewReader("only-one-field\n"))
	assert.ErrorContains(t, err, "malformed ingredient CSV")
}

func TestReadDataset(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		items, err := ReadDataset(writeDataset(t, "ingredients.json", ingredientsJSON))
		require.NoError(t, err)
		assert.Len(t, items, 4)
	})

	t.Run("csv", func(t *testing.T) {
		items, err := ReadDataset(writeDataset(t, "ingredients.CSV", "мука,г\nяйца,шт.\n"))
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadDataset(filepath.Join(t.TempDir(), "ingredients.json"))
		assert.ErrorIs(t, err, ErrDatasetNotFound)
	})

	t.Run("invalid record", func(t *testing.T) {
		path := writeDataset(t, "ingredients.json", `[
			{"name": "мука", "measurement_unit": "г"},
			{"name": "соль", "measurement_unit": ""}
		]`)

		_, err := ReadDataset(path)
		require.Error(t, err)
		assert.ErrorContains(t, err, `ingredient #2 ("соль")`)

		var fieldErrors errs.FieldErrors
		require.ErrorAs(t, err, &fieldErrors)
		assert.Equal(t, "measurement_unit", fieldErrors[0].Field)
	})

	t.Run("name too long", func(t *testing.T) {
		path := writeDataset(t, "ingredients.csv", strings.Repeat("x", 201)+",г\n")

		_, err := ReadDataset(path)
		assert.ErrorContains(t, err, "must not exceed 200 characters")
	})
}

func TestDedupe(t *testing.T) {
	items := []model.Ingredient{
		{Name: "соль", MeasurementUnit: "г"},
		{Name: "соль", MeasurementUnit: "щепотка"},
		{Name: "соль", MeasurementUnit: "г"},
	}

	assert.Equal(t, items[:2], Dedupe(items))
	assert.Empty(t, Dedupe(nil))
}

func TestIngredientService_Load(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("a second load creates nothing", func(t *testing.T) {
		path := writeDataset(t, "ingredients.json", ingredientsJSON)
		store := newMemoryStore()
		svc := NewIngredientService(store, &logger)

		first, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, LoadReport{Path: path, Read: 4, Duplicates: 1, Created: 3, Total: 3}, first)

		second, err := svc.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Zero(t, second.Created)
		assert.Equal(t, 3, second.Total)
		assert.Len(t, store.rows, 3)
	})

	t.Run("invalid dataset never reaches the store", func(t *testing.T) {
		path := writeDataset(t, "ingredients.json", `[{"name": "", "measurement_unit": "г"}]`)
		store := newMemoryStore()

		_, err := NewIngredientService(store, &logger).Load(context.Background(), path)
		assert.Error(t, err)
		assert.Zero(t, store.calls)
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		path := writeDataset(t, "ingredients.json", ingredientsJSON)
		store := newMemoryStore()
		store.err = errors.New("connection reset")

		_, err := NewIngredientService(store, &logger).Load(context.Background(), path)
		assert.ErrorIs(t, err, store.err)
		assert.ErrorContains(t, err, "storing ingredients")
	})
}
