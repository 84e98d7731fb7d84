package cypher

import (
	"context"
	"fmt"

	"github.com/biokg-agent/backend/internal/entities"
	graph "github.com/biokg-agent/backend/internal/graph/neo4j"
	"github.com/biokg-agent/backend/internal/intent"
)

// CypherGenerator is the slice of the LLM client the strategy needs.
type CypherGenerator interface {
	GenerateCypher(ctx context.Context, question string, schema *graph.SchemaInfo, entityNames []string) (string, error)
}

// LLMStrategy asks a language model for a query grounded in the discovered
// schema. The result must pass the same structural validation as synthesized
// queries, plus an optional EXPLAIN check against the store, before the
// pipeline may execute it.
type LLMStrategy struct {
	generator CypherGenerator
	schema    *graph.SchemaInfo
	// explain, when set, validates the query against the store without
	// executing it.
	explain func(ctx context.Context, query string) bool
}

func NewLLMStrategy(generator CypherGenerator, schema *graph.SchemaInfo, explain func(ctx context.Context, query string) bool) *LLMStrategy {
	return &LLMStrategy{
		generator: generator,
		schema:    schema,
		explain:   explain,
	}
}

func (s *LLMStrategy) Name() string { return string(ProvenanceLLM) }

func (s *LLMStrategy) Generate(ctx context.Context, question string, _ intent.Intent, ents []entities.Entity) (*QuerySpec, error) {
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name)
	}

	text, err := s.generator.GenerateCypher(ctx, question, s.schema, names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	spec := &QuerySpec{
		Text:       text,
		Parameters: map[string]any{},
		Provenance: ProvenanceLLM,
	}

	if err := Validate(spec); err != nil {
		return nil, err
	}

	if s.explain != nil && !s.explain(ctx, spec.Text) {
		return nil, fmt.Errorf("%w: query rejected by EXPLAIN", ErrInvalidQuery)
	}

	return spec, nil
}
