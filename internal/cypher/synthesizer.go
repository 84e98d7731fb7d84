package cypher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
	"github.com/biokg-agent/backend/pkg/logger"
)

// binding ties an entity kind to the node variable and property it filters
// on within a pattern fragment.
type binding struct {
	variable string
	property string
}

type fragment struct {
	id       string
	match    string
	returns  string
	bindings map[entities.Kind]binding
}

var fragments = []fragment{
	{
		id:      "drug_targets_protein",
		match:   "MATCH (dr:Drug)-[t:TARGETS]->(p:Protein)",
		returns: "RETURN dr.drug_name AS drug, p.protein_name AS protein, t.affinity AS affinity",
		bindings: map[entities.Kind]binding{
			entities.KindDrug:    {"dr", "drug_name"},
			entities.KindProtein: {"p", "protein_name"},
		},
	},
	{
		id:      "gene_encodes_protein",
		match:   "MATCH (g:Gene)-[:ENCODES]->(p:Protein)",
		returns: "RETURN g.gene_name AS gene, p.protein_name AS protein",
		bindings: map[entities.Kind]binding{
			entities.KindGene:    {"g", "gene_name"},
			entities.KindProtein: {"p", "protein_name"},
		},
	},
	{
		id:      "drug_treats_disease",
		match:   "MATCH (dr:Drug)-[t:TREATS]->(d:Disease)",
		returns: "RETURN dr.drug_name AS drug, d.disease_name AS disease, t.efficacy AS efficacy",
		bindings: map[entities.Kind]binding{
			entities.KindDrug:    {"dr", "drug_name"},
			entities.KindDisease: {"d", "disease_name"},
		},
	},
	{
		id:      "protein_associated_disease",
		match:   "MATCH (p:Protein)-[a:ASSOCIATED_WITH]->(d:Disease)",
		returns: "RETURN p.protein_name AS protein, d.disease_name AS disease, a.confidence AS confidence",
		bindings: map[entities.Kind]binding{
			entities.KindProtein: {"p", "protein_name"},
			entities.KindDisease: {"d", "disease_name"},
		},
	},
	{
		id:      "gene_linked_disease",
		match:   "MATCH (g:Gene)-[:LINKED_TO]->(d:Disease)",
		returns: "RETURN g.gene_name AS gene, d.disease_name AS disease",
		bindings: map[entities.Kind]binding{
			entities.KindGene:    {"g", "gene_name"},
			entities.KindDisease: {"d", "disease_name"},
		},
	},
}

// SynthesizedStrategy composes a query from pattern fragments keyed to the
// entity kinds present, independent of the classified intent. Every produced
// spec passes Validate before it is returned; a spec that fails validation
// is never handed to the executor.
type SynthesizedStrategy struct{}

func NewSynthesizedStrategy() *SynthesizedStrategy {
	return &SynthesizedStrategy{}
}

func (s *SynthesizedStrategy) Name() string { return string(ProvenanceSynthesized) }

func (s *SynthesizedStrategy) Generate(_ context.Context, _ string, _ intent.Intent, ents []entities.Entity) (*QuerySpec, error) {
	if len(ents) == 0 {
		return nil, fmt.Errorf("%w: no entities to compose a pattern from", ErrInvalidQuery)
	}

	frag := selectFragment(ents)

	var conditions []string
	params := make(map[string]any)
	for _, entity := range ents {
		b, ok := frag.bindings[entity.Kind]
		if !ok {
			continue
		}
		name := fmt.Sprintf("p%d", len(params))
		conditions = append(conditions,
			fmt.Sprintf("toLower(%s.%s) CONTAINS toLower($%s)", b.variable, b.property, name))
		params[name] = entity.Name
	}

	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: entities do not bind to pattern %s", ErrInvalidQuery, frag.id)
	}

	text := strings.Join([]string{
		frag.match,
		"WHERE " + strings.Join(conditions, " AND "),
		frag.returns,
		"LIMIT 20",
	}, "\n")

	spec := &QuerySpec{
		TemplateID: frag.id,
		Text:       text,
		Parameters: params,
		Provenance: ProvenanceSynthesized,
	}

	if err := Validate(spec); err != nil {
		return nil, err
	}

	logger.Debug("Query synthesized",
		zap.String("fragment", frag.id),
		zap.Int("conditions", len(conditions)),
	)

	return spec, nil
}

// selectFragment picks the most specific pattern the present entity kinds
// can anchor. Order matters: two-kind patterns before single-kind fallbacks.
func selectFragment(ents []entities.Entity) fragment {
	present := make(map[entities.Kind]bool)
	for _, e := range ents {
		present[e.Kind] = true
	}

	switch {
	case present[entities.KindDrug] && present[entities.KindProtein]:
		return fragments[0]
	case present[entities.KindGene] && present[entities.KindProtein]:
		return fragments[1]
	case present[entities.KindDrug]:
		return fragments[2]
	case present[entities.KindProtein]:
		return fragments[3]
	default:
		return fragments[4]
	}
}
