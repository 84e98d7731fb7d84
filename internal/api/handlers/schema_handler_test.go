package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/graph/neo4j"
)

type fakeSchemaSource struct {
	schema *neo4j.SchemaInfo
	values []any
}

func (f *fakeSchemaSource) GetSchemaInfo(_ context.Context) (*neo4j.SchemaInfo, error) {
	return f.schema, nil
}

func (f *fakeSchemaSource) GetPropertyValues(_ context.Context, _, _ string, _ int) ([]any, error) {
	return f.values, nil
}

type fakeFlusher struct {
	flushed int
}

func (f *fakeFlusher) InvalidateAnswerCache(_ context.Context) error {
	f.flushed++
	return nil
}

func newSchemaApp(source *fakeSchemaSource, vocab *entities.Vocabulary, flusher CacheFlusher) *fiber.App {
	handler := NewSchemaHandler(source, vocab, flusher)

	app := fiber.New()
	app.Get("/api/v1/schema", handler.GetSchema)
	app.Get("/api/v1/schema/values", handler.GetPropertyValues)
	app.Post("/api/v1/schema/refresh", handler.RefreshSchema)
	return app
}

func TestGetSchema(t *testing.T) {
	source := &fakeSchemaSource{schema: &neo4j.SchemaInfo{
		NodeLabels:        []string{"Gene", "Disease"},
		RelationshipTypes: []string{"LINKED_TO"},
		NodeProperties:    map[string][]string{"Gene": {"gene_name"}},
	}}
	app := newSchemaApp(source, entities.NewVocabulary(fakeVocabSource{}), nil)

	req := httptest.NewRequest("GET", "/api/v1/schema", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var schema neo4j.SchemaInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&schema))
	assert.Equal(t, []string{"Gene", "Disease"}, schema.NodeLabels)
}

func TestGetPropertyValues(t *testing.T) {
	source := &fakeSchemaSource{values: []any{"Hypertension", "Type2_Diabetes"}}
	app := newSchemaApp(source, entities.NewVocabulary(fakeVocabSource{}), nil)

	req := httptest.NewRequest("GET", "/api/v1/schema/values?label=Disease&property=disease_name", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Disease", body["label"])
	assert.Len(t, body["values"], 2)
}

func TestGetPropertyValuesRejectsNonIdentifiers(t *testing.T) {
	app := newSchemaApp(&fakeSchemaSource{}, entities.NewVocabulary(fakeVocabSource{}), nil)

	for _, target := range []string{
		"/api/v1/schema/values?label=Disease)%20RETURN%20n//&property=x",
		"/api/v1/schema/values?label=&property=disease_name",
		"/api/v1/schema/values?label=Disease&property=a.b",
	} {
		req := httptest.NewRequest("GET", target, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestRefreshSchemaInvalidatesVocabularyAndCache(t *testing.T) {
	vocab := entities.NewVocabulary(fakeVocabSource{})
	recognizer := entities.NewRecognizer(vocab)
	require.Len(t, recognizer.Recognize(context.Background(), "Hypertension"), 1)

	flusher := &fakeFlusher{}
	app := newSchemaApp(&fakeSchemaSource{}, vocab, flusher)

	req := httptest.NewRequest("POST", "/api/v1/schema/refresh", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, flusher.flushed)

	// Vocabulary still answers after the refetch forced by invalidation.
	assert.Len(t, recognizer.Recognize(context.Background(), "Hypertension"), 1)
}
