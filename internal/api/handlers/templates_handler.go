package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/cypher"
	"github.com/biokg-agent/backend/internal/metrics"
	"github.com/biokg-agent/backend/internal/pipeline"
	"github.com/biokg-agent/backend/pkg/logger"
)

// TemplatesHandler exposes the fixed query templates directly, bypassing
// classification and entity extraction. Useful for UIs that already know
// which lookup they want.
type TemplatesHandler struct {
	executor pipeline.Executor
}

func NewTemplatesHandler(executor pipeline.Executor) *TemplatesHandler {
	return &TemplatesHandler{executor: executor}
}

func (h *TemplatesHandler) ListTemplates(c *fiber.Ctx) error {
	type info struct {
		Name  string `json:"name"`
		Param string `json:"param"`
	}

	templates := make([]info, 0, len(cypher.DirectTemplates))
	for name, tpl := range cypher.DirectTemplates {
		templates = append(templates, info{Name: name, Param: tpl.Param})
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *TemplatesHandler) ExecuteTemplate(c *fiber.Ctx) error {
	name := c.Params("name")

	tpl, ok := cypher.DirectTemplates[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown template",
		})
	}

	value := c.Query(tpl.Param)
	if value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": tpl.Param + " is required",
		})
	}

	rows, err := h.executor.ExecuteQuery(c.Context(), tpl.Text, map[string]any{tpl.Param: value})
	if err != nil {
		metrics.TemplateQueriesTotal.WithLabelValues(tpl.ID, "error").Inc()
		logger.Error("Template query failed",
			zap.String("template", tpl.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Query execution failed",
		})
	}

	metrics.TemplateQueriesTotal.WithLabelValues(tpl.ID, "ok").Inc()

	return c.JSON(fiber.Map{
		"template":  tpl.ID,
		"param":     fiber.Map{tpl.Param: value},
		"row_count": len(rows),
		"rows":      rows,
	})
}
