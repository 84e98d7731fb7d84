package entities

import (
	"context"
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/pkg/logger"
)

// maxPhraseTokens bounds the n-gram window scanned against the vocabulary;
// disease names in the graph run up to four tokens.
const maxPhraseTokens = 4

// syntheticTokenRe matches the GENE_/PROT_ naming convention used by the
// synthetic datasets, so those entities are recognized even before the
// vocabulary has seen them.
var syntheticTokenRe = regexp.MustCompile(`(?i)\b(GENE|PROT)_[A-Z0-9_]+\b`)

// Recognizer extracts known biomedical entities from free text. It never
// fails: malformed input or an unavailable vocabulary degrade to the
// synthetic-token heuristics, worst case an empty result.
type Recognizer struct {
	vocab *Vocabulary
}

func NewRecognizer(vocab *Vocabulary) *Recognizer {
	return &Recognizer{vocab: vocab}
}

// Recognize returns the entities found in the question, ordered by first
// appearance with duplicates removed by canonical name.
func (r *Recognizer) Recognize(ctx context.Context, question string) []Entity {
	if strings.TrimSpace(question) == "" {
		return nil
	}

	vocabReady := true
	if err := r.vocab.ensure(ctx); err != nil {
		logger.Warn("Entity vocabulary unavailable, falling back to heuristics", zap.Error(err))
		vocabReady = false
	}

	var found []Entity
	seen := make(map[string]bool)

	add := func(entity Entity) {
		canonical := Canonicalize(entity.Name)
		if canonical == "" || seen[canonical] {
			return
		}
		seen[canonical] = true
		found = append(found, entity)
	}

	if vocabReady {
		tokens := tokenize(question)
		for i := 0; i < len(tokens); {
			matched := 0
			for n := maxPhraseTokens; n >= 1; n-- {
				if i+n > len(tokens) {
					continue
				}
				phrase := strings.Join(tokens[i:i+n], " ")
				if entity, ok := r.vocab.Lookup(phrase); ok {
					add(entity)
					matched = n
					break
				}
			}
			if matched > 0 {
				i += matched
			} else {
				i++
			}
		}
	}

	for _, match := range syntheticTokenRe.FindAllString(question, -1) {
		name := strings.ToUpper(match)
		kind := KindGene
		if strings.HasPrefix(name, "PROT_") {
			kind = KindProtein
		}
		add(Entity{Name: name, Kind: kind})
	}

	logger.Debug("Entities recognized",
		zap.Int("count", len(found)),
	)

	return found
}

// tokenize splits a question into word tokens, preferring prose's tokenizer
// and falling back to whitespace splitting if it rejects the input.
func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		word := strings.Trim(tok.Text, " .,;:!?()[]{}\"")
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
