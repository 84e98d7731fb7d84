package cypher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
	"github.com/biokg-agent/backend/pkg/logger"
)

// template is one fixed parameterized query. requires lists the entity kind
// bound to each parameter, in order; a template is usable only when every
// required kind is present among the extracted entities.
type template struct {
	id       string
	text     string
	params   []string
	requires []entities.Kind
}

// Per intent, templates are tried in order and the first bindable one wins,
// so a drug-disease question works whether the user named the drug or the
// disease.
var templatesByIntent = map[intent.Intent][]template{
	intent.GeneDisease: {
		{
			id: "genes_for_disease",
			text: `MATCH (g:Gene)-[:LINKED_TO]->(d:Disease)
WHERE toLower(d.disease_name) CONTAINS toLower($disease)
RETURN g.gene_name AS gene, d.disease_name AS disease
LIMIT 20`,
			params:   []string{"disease"},
			requires: []entities.Kind{entities.KindDisease},
		},
		{
			id: "diseases_for_gene",
			text: `MATCH (g:Gene)-[:LINKED_TO]->(d:Disease)
WHERE toLower(g.gene_name) CONTAINS toLower($gene)
RETURN g.gene_name AS gene, d.disease_name AS disease
LIMIT 20`,
			params:   []string{"gene"},
			requires: []entities.Kind{entities.KindGene},
		},
	},
	intent.DrugDisease: {
		{
			id: "drugs_for_disease",
			text: `MATCH (dr:Drug)-[t:TREATS]->(d:Disease)
WHERE toLower(d.disease_name) CONTAINS toLower($disease)
RETURN dr.drug_name AS drug, d.disease_name AS disease,
       t.efficacy AS efficacy, t.stage AS stage
ORDER BY CASE t.efficacy
    WHEN 'high' THEN 1
    WHEN 'medium' THEN 2
    ELSE 3 END
LIMIT 20`,
			params:   []string{"disease"},
			requires: []entities.Kind{entities.KindDisease},
		},
		{
			id: "diseases_for_drug",
			text: `MATCH (dr:Drug)-[t:TREATS]->(d:Disease)
WHERE toLower(dr.drug_name) CONTAINS toLower($drug)
RETURN dr.drug_name AS drug, d.disease_name AS disease,
       t.efficacy AS efficacy, t.stage AS stage
LIMIT 20`,
			params:   []string{"drug"},
			requires: []entities.Kind{entities.KindDrug},
		},
	},
	intent.ProteinDisease: {
		{
			id: "diseases_for_protein",
			text: `MATCH (p:Protein)-[a:ASSOCIATED_WITH]->(d:Disease)
WHERE toLower(p.protein_name) CONTAINS toLower($protein)
RETURN p.protein_name AS protein, d.disease_name AS disease,
       a.association_type AS association_type, a.confidence AS confidence
ORDER BY CASE a.confidence
    WHEN 'high' THEN 1
    WHEN 'medium' THEN 2
    ELSE 3 END
LIMIT 20`,
			params:   []string{"protein"},
			requires: []entities.Kind{entities.KindProtein},
		},
		{
			id: "proteins_for_disease",
			text: `MATCH (p:Protein)-[a:ASSOCIATED_WITH]->(d:Disease)
WHERE toLower(d.disease_name) CONTAINS toLower($disease)
RETURN p.protein_name AS protein, d.disease_name AS disease,
       a.association_type AS association_type, a.confidence AS confidence
LIMIT 20`,
			params:   []string{"disease"},
			requires: []entities.Kind{entities.KindDisease},
		},
	},
	intent.DrugTarget: {
		{
			id: "drug_targets",
			text: `MATCH (dr:Drug)-[t:TARGETS]->(p:Protein)
WHERE toLower(dr.drug_name) CONTAINS toLower($drug)
RETURN dr.drug_name AS drug, p.protein_name AS protein,
       t.interaction_type AS interaction_type, t.affinity AS affinity
LIMIT 20`,
			params:   []string{"drug"},
			requires: []entities.Kind{entities.KindDrug},
		},
		{
			id: "drugs_for_protein",
			text: `MATCH (dr:Drug)-[t:TARGETS]->(p:Protein)
WHERE toLower(p.protein_name) CONTAINS toLower($protein)
RETURN dr.drug_name AS drug, p.protein_name AS protein,
       t.interaction_type AS interaction_type, t.affinity AS affinity
LIMIT 20`,
			params:   []string{"protein"},
			requires: []entities.Kind{entities.KindProtein},
		},
	},
	intent.Pathway: {
		{
			id: "pathway_for_disease",
			text: `MATCH path = (g:Gene)-[:ENCODES]->(p:Protein)
      -[:ASSOCIATED_WITH]->(d:Disease)<-[:TREATS]-(dr:Drug)
WHERE toLower(d.disease_name) CONTAINS toLower($disease)
RETURN g.gene_name AS gene, p.protein_name AS protein,
       d.disease_name AS disease, dr.drug_name AS drug
LIMIT 20`,
			params:   []string{"disease"},
			requires: []entities.Kind{entities.KindDisease},
		},
	},
}

// TemplatedStrategy looks queries up in the fixed table above. It holds no
// state, so identical inputs always yield identical QuerySpecs.
type TemplatedStrategy struct{}

func NewTemplatedStrategy() *TemplatedStrategy {
	return &TemplatedStrategy{}
}

func (s *TemplatedStrategy) Name() string { return string(ProvenanceTemplated) }

func (s *TemplatedStrategy) Generate(_ context.Context, _ string, it intent.Intent, ents []entities.Entity) (*QuerySpec, error) {
	candidates, ok := templatesByIntent[it]
	if !ok {
		return nil, fmt.Errorf("%w: no template for %q", ErrUnsupportedIntent, it)
	}

	for _, tpl := range candidates {
		params, ok := bindParams(tpl, ents)
		if !ok {
			continue
		}

		logger.Debug("Template selected",
			zap.String("template", tpl.id),
			zap.String("intent", string(it)),
		)

		return &QuerySpec{
			TemplateID: tpl.id,
			Text:       tpl.text,
			Parameters: params,
			Provenance: ProvenanceTemplated,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q requires a named %s", ErrUnsupportedIntent, it, requiredKinds(candidates))
}

func bindParams(tpl template, ents []entities.Entity) (map[string]any, bool) {
	params := make(map[string]any, len(tpl.params))
	for i, name := range tpl.params {
		entity, ok := firstOfKind(ents, tpl.requires[i])
		if !ok {
			return nil, false
		}
		params[name] = entity.Name
	}
	return params, true
}

func requiredKinds(candidates []template) string {
	seen := make(map[entities.Kind]bool)
	var out string
	for _, tpl := range candidates {
		for _, kind := range tpl.requires {
			if seen[kind] {
				continue
			}
			seen[kind] = true
			if out != "" {
				out += " or "
			}
			out += string(kind)
		}
	}
	return out
}

// DirectTemplate is a template exposed through the direct query API,
// bypassing the pipeline. This mirrors the method-per-question reference
// agent and includes the gene-to-protein lookup that has no pipeline intent.
type DirectTemplate struct {
	ID    string
	Text  string
	Param string
}

var DirectTemplates = map[string]DirectTemplate{
	"genes-for-disease": {
		ID:    "genes_for_disease",
		Text:  templatesByIntent[intent.GeneDisease][0].text,
		Param: "disease",
	},
	"drugs-for-disease": {
		ID:    "drugs_for_disease",
		Text:  templatesByIntent[intent.DrugDisease][0].text,
		Param: "disease",
	},
	"protein-for-gene": {
		ID: "protein_encoded_by_gene",
		Text: `MATCH (g:Gene)-[:ENCODES]->(p:Protein)
WHERE toLower(g.gene_name) CONTAINS toLower($gene)
RETURN g.gene_name AS gene, p.protein_name AS protein,
       p.molecular_weight AS molecular_weight`,
		Param: "gene",
	},
	"diseases-for-protein": {
		ID:    "diseases_for_protein",
		Text:  templatesByIntent[intent.ProteinDisease][0].text,
		Param: "protein",
	},
	"drug-targets": {
		ID:    "drug_targets",
		Text:  templatesByIntent[intent.DrugTarget][0].text,
		Param: "drug",
	},
	"pathway-for-disease": {
		ID:    "pathway_for_disease",
		Text:  templatesByIntent[intent.Pathway][0].text,
		Param: "disease",
	},
}
