package handlers

import (
	"context"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/graph/neo4j"
	"github.com/biokg-agent/backend/pkg/logger"
)

// SchemaSource serves the graph's current shape and sample content.
type SchemaSource interface {
	GetSchemaInfo(ctx context.Context) (*neo4j.SchemaInfo, error)
	GetPropertyValues(ctx context.Context, label, property string, limit int) ([]any, error)
}

// Labels and property names are interpolated into Cypher, so they must be
// plain identifiers.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CacheFlusher drops cached answers when the graph content changes.
type CacheFlusher interface {
	InvalidateAnswerCache(ctx context.Context) error
}

type SchemaHandler struct {
	graph SchemaSource
	vocab *entities.Vocabulary
	cache CacheFlusher
}

func NewSchemaHandler(graph SchemaSource, vocab *entities.Vocabulary, cache CacheFlusher) *SchemaHandler {
	return &SchemaHandler{
		graph: graph,
		vocab: vocab,
		cache: cache,
	}
}

func (h *SchemaHandler) GetSchema(c *fiber.Ctx) error {
	schema, err := h.graph.GetSchemaInfo(c.Context())
	if err != nil {
		logger.Error("Failed to load graph schema", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load schema",
		})
	}

	return c.JSON(schema)
}

// GetPropertyValues samples distinct values of one property, for UIs that
// want to offer known entity names.
func (h *SchemaHandler) GetPropertyValues(c *fiber.Ctx) error {
	label := c.Query("label")
	property := c.Query("property")

	if !identifierRe.MatchString(label) || !identifierRe.MatchString(property) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label and property must be plain identifiers",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 200 {
		limit = 20
	}

	values, err := h.graph.GetPropertyValues(c.Context(), label, property, limit)
	if err != nil {
		logger.Error("Failed to sample property values",
			zap.String("label", label),
			zap.String("property", property),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load property values",
		})
	}

	return c.JSON(fiber.Map{
		"label":    label,
		"property": property,
		"values":   values,
	})
}

// RefreshSchema invalidates everything derived from graph content: the
// entity vocabulary and the answer cache. Callers hit this after loading new
// data into the graph.
func (h *SchemaHandler) RefreshSchema(c *fiber.Ctx) error {
	h.vocab.Invalidate()

	if h.cache != nil {
		if err := h.cache.InvalidateAnswerCache(c.Context()); err != nil {
			logger.Warn("Failed to flush answer cache", zap.Error(err))
		}
	}

	logger.Info("Schema refresh requested, vocabulary invalidated")

	return c.JSON(fiber.Map{"status": "refreshed"})
}
