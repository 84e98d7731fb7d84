package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	graph "github.com/biokg-agent/backend/internal/graph/neo4j"
	"github.com/biokg-agent/backend/pkg/circuitbreaker"
	"github.com/biokg-agent/backend/pkg/logger"
	"github.com/biokg-agent/backend/pkg/retry"
)

// Client wraps the OpenAI chat API for the optional LLM-assisted paths:
// Cypher generation from the discovered schema, and answer phrasing. The
// deterministic pipeline paths never touch it.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: c.temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}

// GenerateCypher asks the model for a read-only Cypher query grounded in the
// discovered schema. Markdown code fences are stripped; the caller is
// responsible for validating the query before execution.
func (c *Client) GenerateCypher(ctx context.Context, question string, schema *graph.SchemaInfo, entityNames []string) (string, error) {
	systemPrompt := `You are a biomedical graph query expert. Translate a question into a single read-only Cypher query.

Rules:
- Use only MATCH, WHERE, RETURN, ORDER BY and LIMIT clauses.
- Use WHERE with toLower(...) CONTAINS toLower(...) for name filtering.
- Always end with LIMIT 10.
- Return only the Cypher query, no explanation.`

	properties, _ := json.Marshal(schema.NodeProperties)

	userPrompt := fmt.Sprintf(`Question: %s

Node labels: %s
Relationship types: %s
Node properties: %s
Entities mentioned: %s

Return only the Cypher query.`,
		question,
		strings.Join(schema.NodeLabels, ", "),
		strings.Join(schema.RelationshipTypes, ", "),
		string(properties),
		strings.Join(entityNames, ", "),
	)

	raw, err := c.complete(ctx, systemPrompt, userPrompt, 256)
	if err != nil {
		return "", fmt.Errorf("failed to generate cypher: %w", err)
	}

	query := stripCodeFences(raw)

	logger.Debug("Cypher generated by LLM", zap.Int("length", len(query)))

	return query, nil
}

// SummarizeResults phrases query result rows as a short natural-language
// answer. Used only when answer phrasing is enabled; the deterministic
// formatter is the fallback.
func (c *Client) SummarizeResults(ctx context.Context, question string, rows []map[string]any, total int) (string, error) {
	sample := rows
	if len(sample) > 5 {
		sample = sample[:5]
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows: %w", err)
	}

	systemPrompt := `You summarize biomedical graph query results. Be concise, factual and base the answer only on the provided rows.`

	userPrompt := fmt.Sprintf(`Question: %s
Results: %s
Total found: %d

Write a clear two or three sentence answer.`, question, string(data), total)

	answer, err := c.complete(ctx, systemPrompt, userPrompt, 300)
	if err != nil {
		return "", fmt.Errorf("failed to summarize results: %w", err)
	}

	return answer, nil
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return strings.TrimSpace(text)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.EqualFold(trimmed, "cypher") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
