package cypher

import (
	"context"
	"errors"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
)

// Provenance records how a QuerySpec was produced.
type Provenance string

const (
	ProvenanceTemplated   Provenance = "templated"
	ProvenanceSynthesized Provenance = "synthesized"
	ProvenanceLLM         Provenance = "llm"
)

// QuerySpec is a fully parameterized Cypher query ready for execution. Every
// placeholder referenced in Text must be bound in Parameters.
type QuerySpec struct {
	TemplateID string         `json:"template_id,omitempty"`
	Text       string         `json:"text"`
	Parameters map[string]any `json:"parameters"`
	Provenance Provenance     `json:"provenance"`
}

var (
	// ErrUnsupportedIntent means no query can be produced for the intent and
	// entities at hand.
	ErrUnsupportedIntent = errors.New("unsupported intent")
	// ErrInvalidQuery means a produced query failed validation and must not
	// be executed.
	ErrInvalidQuery = errors.New("invalid query")
)

// Strategy turns a classified question into a QuerySpec. Implementations are
// selected at configuration time; the deterministic strategies are pure
// functions of (intent, entities) and ignore the raw question.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, question string, it intent.Intent, ents []entities.Entity) (*QuerySpec, error)
}

func firstOfKind(ents []entities.Entity, kind entities.Kind) (entities.Entity, bool) {
	for _, e := range ents {
		if e.Kind == kind {
			return e, true
		}
	}
	return entities.Entity{}, false
}
