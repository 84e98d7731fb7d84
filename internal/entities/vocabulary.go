package entities

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/biokg-agent/backend/pkg/logger"
)

// Kind is the category of a recognized biomedical entity.
type Kind string

const (
	KindGene    Kind = "gene"
	KindProtein Kind = "protein"
	KindDisease Kind = "disease"
	KindDrug    Kind = "drug"
)

// Entity is a named biomedical concept recognized in a question. Name is the
// canonical name as stored in the graph.
type Entity struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Source provides the known entity names per graph label.
type Source interface {
	EntityNames(ctx context.Context, label, property string) ([]string, error)
}

var vocabularyLabels = []struct {
	label    string
	property string
	kind     Kind
}{
	{"Gene", "gene_name", KindGene},
	{"Protein", "protein_name", KindProtein},
	{"Disease", "disease_name", KindDisease},
	{"Drug", "drug_name", KindDrug},
}

// Vocabulary is a lazily populated, read-only cache of the graph's entity
// names. Population is guarded so concurrent first callers trigger a single
// fetch; after that, lookups take only a read lock. Invalidate forces a
// refetch on the next use.
type Vocabulary struct {
	source Source

	mu          sync.RWMutex
	loaded      bool
	byCanonical map[string]Entity
	bySquashed  map[string]Entity
}

func NewVocabulary(source Source) *Vocabulary {
	return &Vocabulary{
		source:      source,
		byCanonical: make(map[string]Entity),
		bySquashed:  make(map[string]Entity),
	}
}

func (v *Vocabulary) ensure(ctx context.Context) error {
	v.mu.RLock()
	if v.loaded {
		v.mu.RUnlock()
		return nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loaded {
		return nil
	}

	byCanonical := make(map[string]Entity)
	bySquashed := make(map[string]Entity)

	for _, entry := range vocabularyLabels {
		names, err := v.source.EntityNames(ctx, entry.label, entry.property)
		if err != nil {
			return fmt.Errorf("failed to load %s vocabulary: %w", entry.label, err)
		}
		for _, name := range names {
			entity := Entity{Name: name, Kind: entry.kind}
			canonical := Canonicalize(name)
			if canonical == "" {
				continue
			}
			if _, exists := byCanonical[canonical]; !exists {
				byCanonical[canonical] = entity
			}
			squashed := strings.ReplaceAll(canonical, " ", "")
			if _, exists := bySquashed[squashed]; !exists {
				bySquashed[squashed] = entity
			}
		}
	}

	v.byCanonical = byCanonical
	v.bySquashed = bySquashed
	v.loaded = true

	logger.Info("Entity vocabulary loaded", zap.Int("names", len(byCanonical)))
	return nil
}

// Lookup resolves a candidate phrase against the vocabulary. Matching is
// case-insensitive and tolerant of underscore-for-space differences.
func (v *Vocabulary) Lookup(phrase string) (Entity, bool) {
	canonical := Canonicalize(phrase)
	if canonical == "" {
		return Entity{}, false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if entity, ok := v.byCanonical[canonical]; ok {
		return entity, true
	}
	if entity, ok := v.bySquashed[strings.ReplaceAll(canonical, " ", "")]; ok {
		return entity, true
	}
	return Entity{}, false
}

// Invalidate drops the cached names so the next use refetches them. Callers
// signal this when the backing graph schema or content changes.
func (v *Vocabulary) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = false
	v.byCanonical = make(map[string]Entity)
	v.bySquashed = make(map[string]Entity)
}

// Canonicalize normalizes an entity name for matching: lowercase,
// underscores become spaces, apostrophes are dropped and whitespace is
// collapsed.
func Canonicalize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.Trim(s, " .,;:!?()[]{}\"")
	return strings.Join(strings.Fields(s), " ")
}
