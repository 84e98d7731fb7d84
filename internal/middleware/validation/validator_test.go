package validation

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newValidatedApp(cfg Config) *fiber.App {
	cfg.Logger = zap.NewNop()

	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/question", func(c *fiber.Ctx) error {
		sanitized, _ := c.Locals("sanitized_body").(map[string]interface{})
		question, _ := sanitized["question"].(string)
		return c.JSON(fiber.Map{"question": question})
	})
	return app
}

func post(t *testing.T, app *fiber.App, body, contentType string) int {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/question", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestValidQuestionPasses(t *testing.T) {
	app := newValidatedApp(Config{})
	status := post(t, app, `{"question":"What genes are linked to Hypertension?"}`, "application/json")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMissingQuestionRejected(t *testing.T) {
	app := newValidatedApp(Config{})
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, `{}`, "application/json"))
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, `{"question":"   "}`, "application/json"))
}

func TestInvalidJSONRejected(t *testing.T) {
	app := newValidatedApp(Config{})
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, `{"question":`, "application/json"))
}

func TestUnsupportedContentTypeRejected(t *testing.T) {
	app := newValidatedApp(Config{})
	status := post(t, app, `question=x`, "application/x-www-form-urlencoded")
	assert.Equal(t, fiber.StatusUnsupportedMediaType, status)
}

func TestOverlongQuestionRejected(t *testing.T) {
	app := newValidatedApp(Config{MaxQuestionLength: 50})
	long := strings.Repeat("a", 60)
	status := post(t, app, `{"question":"`+long+`"}`, "application/json")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestXSSRejected(t *testing.T) {
	app := newValidatedApp(Config{})
	status := post(t, app, `{"question":"<script>alert(1)</script>"}`, "application/json")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", sanitizeString("  hello  "))
	assert.Equal(t, "ab", sanitizeString("a\x00b"))
}
