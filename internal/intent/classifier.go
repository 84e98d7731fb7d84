package intent

import (
	"strings"

	"go.uber.org/zap"

	"github.com/biokg-agent/backend/pkg/logger"
)

// Intent is the closed classification of a biomedical question type.
type Intent string

const (
	GeneDisease    Intent = "gene_disease"
	DrugDisease    Intent = "drug_disease"
	ProteinDisease Intent = "protein_disease"
	DrugTarget     Intent = "drug_target"
	Pathway        Intent = "pathway"
	Unknown        Intent = "unknown"
)

// rule matches when every term of any of its patterns appears in the
// lowercased question.
type rule struct {
	intent   Intent
	patterns [][]string
}

// Classifier assigns exactly one Intent per question by keyword matching.
// Rules are ordered most specific first and the first match wins, so
// classification is deterministic and never fails; the worst case is Unknown.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{
		rules: []rule{
			{
				intent: Pathway,
				patterns: [][]string{
					{"pathway"},
					{"mechanism"},
					{"cascade"},
					{"from gene", "treatment"},
				},
			},
			{
				intent: DrugTarget,
				patterns: [][]string{
					{"target"},
					{"binds"},
					{"bind to"},
					{"inhibit"},
					{"agonist"},
					{"antagonist"},
				},
			},
			{
				intent: ProteinDisease,
				patterns: [][]string{
					{"protein", "disease"},
					{"protein", "associated"},
					{"protein", "linked"},
					{"protein", "cause"},
					{"prot_"},
				},
			},
			{
				intent: DrugDisease,
				patterns: [][]string{
					{"treat"},
					{"drug"},
					{"medication"},
					{"therapy"},
					{"cure"},
					{"prescri"},
				},
			},
			{
				intent: GeneDisease,
				patterns: [][]string{
					{"gene"},
					{"genetic"},
					{"hereditary"},
					{"associated with"},
					{"linked to"},
					{"mutation"},
				},
			},
		},
	}
}

// Classify maps a question to one Intent. An unmatchable question resolves
// to Unknown rather than an error.
func (c *Classifier) Classify(question string) Intent {
	lower := strings.ToLower(question)

	for _, r := range c.rules {
		for _, pattern := range r.patterns {
			if matchesAll(lower, pattern) {
				logger.Debug("Question classified",
					zap.String("intent", string(r.intent)),
				)
				return r.intent
			}
		}
	}

	return Unknown
}

func matchesAll(lower string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	return true
}
