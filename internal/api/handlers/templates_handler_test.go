package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplatesApp(exec *fakeExecutor) *fiber.App {
	handler := NewTemplatesHandler(exec)

	app := fiber.New()
	app.Get("/api/v1/templates", handler.ListTemplates)
	app.Get("/api/v1/templates/:name", handler.ExecuteTemplate)
	return app
}

func TestListTemplates(t *testing.T) {
	app := newTemplatesApp(&fakeExecutor{})

	req := httptest.NewRequest("GET", "/api/v1/templates", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Templates []struct {
			Name  string `json:"name"`
			Param string `json:"param"`
		} `json:"templates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	names := make([]string, 0, len(body.Templates))
	for _, tpl := range body.Templates {
		names = append(names, tpl.Name)
	}
	assert.Contains(t, names, "genes-for-disease")
	assert.Contains(t, names, "protein-for-gene")
	assert.Contains(t, names, "pathway-for-disease")
}

func TestExecuteTemplate(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{
		{"gene": "GENE_ALPHA", "disease": "Hypertension"},
	}}
	app := newTemplatesApp(exec)

	req := httptest.NewRequest("GET", "/api/v1/templates/genes-for-disease?disease=Hypertension", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "genes_for_disease", body["template"])
	assert.Equal(t, float64(1), body["row_count"])
}

func TestExecuteTemplateUnknown(t *testing.T) {
	app := newTemplatesApp(&fakeExecutor{})

	req := httptest.NewRequest("GET", "/api/v1/templates/does-not-exist?x=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExecuteTemplateMissingParam(t *testing.T) {
	app := newTemplatesApp(&fakeExecutor{})

	req := httptest.NewRequest("GET", "/api/v1/templates/genes-for-disease", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
