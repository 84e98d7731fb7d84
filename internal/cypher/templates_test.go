package cypher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
)

func TestTemplatedStrategyGenerate(t *testing.T) {
	s := NewTemplatedStrategy()
	ctx := context.Background()

	tests := []struct {
		name       string
		intent     intent.Intent
		entities   []entities.Entity
		templateID string
		contains   string
	}{
		{
			name:       "gene disease by disease",
			intent:     intent.GeneDisease,
			entities:   []entities.Entity{{Name: "Hypertension", Kind: entities.KindDisease}},
			templateID: "genes_for_disease",
			contains:   "LINKED_TO",
		},
		{
			name:       "gene disease by gene",
			intent:     intent.GeneDisease,
			entities:   []entities.Entity{{Name: "GENE_ALPHA", Kind: entities.KindGene}},
			templateID: "diseases_for_gene",
			contains:   "LINKED_TO",
		},
		{
			name:       "drug disease by disease",
			intent:     intent.DrugDisease,
			entities:   []entities.Entity{{Name: "Hypertension", Kind: entities.KindDisease}},
			templateID: "drugs_for_disease",
			contains:   "TREATS",
		},
		{
			name:       "drug disease by drug",
			intent:     intent.DrugDisease,
			entities:   []entities.Entity{{Name: "Metformin", Kind: entities.KindDrug}},
			templateID: "diseases_for_drug",
			contains:   "TREATS",
		},
		{
			name:       "protein disease by protein",
			intent:     intent.ProteinDisease,
			entities:   []entities.Entity{{Name: "PROT_ALPHA", Kind: entities.KindProtein}},
			templateID: "diseases_for_protein",
			contains:   "ASSOCIATED_WITH",
		},
		{
			name:       "drug target by drug",
			intent:     intent.DrugTarget,
			entities:   []entities.Entity{{Name: "AlphaCure", Kind: entities.KindDrug}},
			templateID: "drug_targets",
			contains:   "TARGETS",
		},
		{
			name:       "pathway by disease",
			intent:     intent.Pathway,
			entities:   []entities.Entity{{Name: "cancer", Kind: entities.KindDisease}},
			templateID: "pathway_for_disease",
			contains:   "ENCODES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := s.Generate(ctx, "", tt.intent, tt.entities)
			require.NoError(t, err)
			assert.Equal(t, tt.templateID, spec.TemplateID)
			assert.Equal(t, ProvenanceTemplated, spec.Provenance)
			assert.Contains(t, spec.Text, tt.contains)
			assert.NoError(t, Validate(spec))
		})
	}
}

// Parameter keys of every accepted templated spec must be exactly the
// placeholders present in the query text.
func TestTemplatedParametersMatchPlaceholders(t *testing.T) {
	s := NewTemplatedStrategy()
	ctx := context.Background()

	allKinds := []entities.Entity{
		{Name: "GENE_ALPHA", Kind: entities.KindGene},
		{Name: "PROT_ALPHA", Kind: entities.KindProtein},
		{Name: "Hypertension", Kind: entities.KindDisease},
		{Name: "Metformin", Kind: entities.KindDrug},
	}

	for _, it := range []intent.Intent{
		intent.GeneDisease, intent.DrugDisease, intent.ProteinDisease,
		intent.DrugTarget, intent.Pathway,
	} {
		spec, err := s.Generate(ctx, "", it, allKinds)
		require.NoError(t, err, "intent %s", it)

		placeholders := Placeholders(spec.Text)
		require.Len(t, spec.Parameters, len(placeholders))
		for _, name := range placeholders {
			assert.Contains(t, spec.Parameters, name)
		}
	}
}

func TestTemplatedStrategyUnsupported(t *testing.T) {
	s := NewTemplatedStrategy()
	ctx := context.Background()

	_, err := s.Generate(ctx, "", intent.DrugDisease, nil)
	assert.ErrorIs(t, err, ErrUnsupportedIntent)

	_, err = s.Generate(ctx, "", intent.Unknown, []entities.Entity{
		{Name: "Hypertension", Kind: entities.KindDisease},
	})
	assert.ErrorIs(t, err, ErrUnsupportedIntent)

	// Pathway needs a disease; a lone gene cannot bind it.
	_, err = s.Generate(ctx, "", intent.Pathway, []entities.Entity{
		{Name: "GENE_ALPHA", Kind: entities.KindGene},
	})
	assert.ErrorIs(t, err, ErrUnsupportedIntent)
}

func TestTemplatedStrategyIsDeterministic(t *testing.T) {
	s := NewTemplatedStrategy()
	ctx := context.Background()
	ents := []entities.Entity{{Name: "Hypertension", Kind: entities.KindDisease}}

	first, err := s.Generate(ctx, "", intent.GeneDisease, ents)
	require.NoError(t, err)

	second, err := s.Generate(ctx, "", intent.GeneDisease, ents)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDirectTemplatesAreWellFormed(t *testing.T) {
	for name, tpl := range DirectTemplates {
		t.Run(name, func(t *testing.T) {
			placeholders := Placeholders(tpl.Text)
			require.Len(t, placeholders, 1)
			assert.Equal(t, tpl.Param, placeholders[0])

			spec := &QuerySpec{
				Text:       tpl.Text,
				Parameters: map[string]any{tpl.Param: "x"},
				Provenance: ProvenanceTemplated,
			}
			assert.NoError(t, Validate(spec))
		})
	}
}
