package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/metrics"
	"github.com/biokg-agent/backend/internal/pipeline"
	"github.com/biokg-agent/backend/internal/storage/models"
	"github.com/biokg-agent/backend/pkg/logger"
	"github.com/biokg-agent/backend/pkg/utils"
)

// AnswerCache is the optional read-through cache in front of the pipeline.
type AnswerCache interface {
	GetResult(ctx context.Context, questionHash string, result interface{}) (bool, error)
	SetResult(ctx context.Context, questionHash string, result interface{}, ttl time.Duration) error
}

// HistoryReader serves stored questions and feedback.
type HistoryReader interface {
	GetQuestionHistory(userID string, limit int) ([]models.QuestionRecord, error)
	StoreFeedback(feedback *models.Feedback) error
}

type QuestionHandler struct {
	pipeline  *pipeline.Pipeline
	cache     AnswerCache
	store     HistoryReader
	answerTTL time.Duration
}

func NewQuestionHandler(p *pipeline.Pipeline, cache AnswerCache, store HistoryReader, answerTTL time.Duration) *QuestionHandler {
	if answerTTL <= 0 {
		answerTTL = 5 * time.Minute
	}
	return &QuestionHandler{
		pipeline:  p,
		cache:     cache,
		store:     store,
		answerTTL: answerTTL,
	}
}

func (h *QuestionHandler) HandleQuestion(c *fiber.Ctx) error {
	question, userID, ok := parseQuestionRequest(c)
	if !ok {
		return nil
	}

	questionHash := utils.HashString(question)

	if h.cache != nil {
		var cached pipeline.Result
		hit, err := h.cache.GetResult(c.Context(), questionHash, &cached)
		if err != nil {
			logger.Warn("Answer cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("answer").Inc()
			return c.JSON(fiber.Map{"result": cached, "cached": true})
		}
		metrics.CacheMisses.WithLabelValues("answer").Inc()
	}

	result := h.pipeline.AnswerQuestion(c.Context(), question, userID)

	// Only clean answers are cached; failures should retry the pipeline.
	if h.cache != nil && result.Error == nil {
		if err := h.cache.SetResult(c.Context(), questionHash, result, h.answerTTL); err != nil {
			logger.Warn("Failed to cache answer", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"result": result, "cached": false})
}

func (h *QuestionHandler) ExplainQuestion(c *fiber.Ctx) error {
	question, _, ok := parseQuestionRequest(c)
	if !ok {
		return nil
	}

	state := h.pipeline.Explain(c.Context(), question)
	return c.JSON(state)
}

func (h *QuestionHandler) GetHistory(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "History store is not configured",
		})
	}

	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	records, err := h.store.GetQuestionHistory(userID, limit)
	if err != nil {
		logger.Error("Failed to load question history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{"history": records})
}

func (h *QuestionHandler) HandleFeedback(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "History store is not configured",
		})
	}

	var req struct {
		QuestionID string `json:"question_id"`
		UserID     string `json:"user_id"`
		Rating     int    `json:"rating"`
		Comment    string `json:"comment"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QuestionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "question_id is required",
		})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "rating must be between 1 and 5",
		})
	}

	feedback := &models.Feedback{
		ID:         uuid.New().String(),
		QuestionID: req.QuestionID,
		UserID:     req.UserID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	if err := h.store.StoreFeedback(feedback); err != nil {
		logger.Error("Failed to store feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store feedback",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": feedback.ID})
}

// parseQuestionRequest prefers the sanitized body left by the validation
// middleware and falls back to parsing the raw request. On a bad request it
// writes the error response itself and reports ok=false.
func parseQuestionRequest(c *fiber.Ctx) (question, userID string, ok bool) {
	if sanitized, isMap := c.Locals("sanitized_body").(map[string]interface{}); isMap {
		question, _ = sanitized["question"].(string)
		userID, _ = sanitized["user_id"].(string)
	} else {
		var req struct {
			Question string `json:"question"`
			UserID   string `json:"user_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			logger.Error("Failed to parse request body", zap.Error(err))
			c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
			return "", "", false
		}
		question = req.Question
		userID = req.UserID
	}

	if strings.TrimSpace(question) == "" {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
		return "", "", false
	}

	return question, userID, true
}
