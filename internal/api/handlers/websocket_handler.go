package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/pipeline"
	"github.com/biokg-agent/backend/pkg/logger"
)

type WebSocketHandler struct {
	pipeline *pipeline.Pipeline
}

func NewWebSocketHandler(p *pipeline.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{pipeline: p}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
			UserID  string `json:"user_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "question" {
			continue
		}

		err = h.streamAnswer(c, msg.Content, msg.UserID)
		if err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to process question")
		}
	}
}

// streamAnswer runs the pipeline with an observer so the client sees each
// stage as it completes, then streams the answer word by word and finishes
// with the full result.
func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, question, userID string) error {
	ctx := context.Background()

	var streamErr error
	result := h.pipeline.AnswerQuestionWithObserver(ctx, question, userID,
		func(stage pipeline.Stage, state *pipeline.State) {
			if streamErr != nil || stage == pipeline.StageDone {
				return
			}
			streamErr = c.WriteJSON(map[string]interface{}{
				"type":   "stage",
				"stage":  string(stage),
				"intent": string(state.Intent),
			})
		})
	if streamErr != nil {
		return streamErr
	}

	words := splitIntoWords(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		err := c.WriteJSON(map[string]interface{}{
			"type":    "chunk",
			"content": chunk,
		})
		if err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"result": result,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
