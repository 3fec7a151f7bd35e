package analyses

// NotFound is the fallback value the model is instructed to emit for any
// field it cannot locate in the document. Keeping it a plain string avoids
// null/undefined ambiguity in rendered reports.
const NotFound = "Not found in document"

// Report is the fixed-schema structured output describing plan benefits.
type Report struct {
	PlanOverview    PlanOverview     `json:"plan_overview"`
	CostSharing     CostSharing      `json:"cost_sharing"`
	Coverage        []CoverageItem   `json:"coverage"`
	DrugTiers       []DrugTier       `json:"drug_tiers"`
	Notes           []string         `json:"notes"`
	ExtraFields     []ExtractedField `json:"extra_fields"`
	DocumentQuality DocumentQuality  `json:"document_quality"`
}

type PlanOverview struct {
	Carrier       string `json:"carrier"`
	PlanName      string `json:"plan_name"`
	PlanType      string `json:"plan_type"`
	EffectiveDate string `json:"effective_date"`
	GroupNumber   string `json:"group_number"`
}

type CostSharing struct {
	IndividualDeductible string `json:"individual_deductible"`
	FamilyDeductible     string `json:"family_deductible"`
	IndividualOOPMax     string `json:"individual_oop_max"`
	FamilyOOPMax         string `json:"family_oop_max"`
	Coinsurance          string `json:"coinsurance"`
	OfficeVisitCopay     string `json:"office_visit_copay"`
	SpecialistCopay      string `json:"specialist_copay"`
}

type CoverageItem struct {
	Service string `json:"service"`
	Covered string `json:"covered"`
	Details string `json:"details"`
}

type DrugTier struct {
	Tier string `json:"tier"`
	Cost string `json:"cost"`
}

type ExtractedField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DocumentQuality is the model's self-reported assessment of the source.
type DocumentQuality struct {
	Legibility   string `json:"legibility"`
	Completeness string `json:"completeness"`
	Confidence   string `json:"confidence"`
}

// Normalize fills any empty scalar field with the NotFound fallback and
// ensures slices are non-nil so the rendered report has no holes.
func (r *Report) Normalize() {
	fill := func(s *string) {
		if *s == "" {
			*s = NotFound
		}
	}
	fill(&r.PlanOverview.Carrier)
	fill(&r.PlanOverview.PlanName)
	fill(&r.PlanOverview.PlanType)
	fill(&r.PlanOverview.EffectiveDate)
	fill(&r.PlanOverview.GroupNumber)
	fill(&r.CostSharing.IndividualDeductible)
	fill(&r.CostSharing.FamilyDeductible)
	fill(&r.CostSharing.IndividualOOPMax)
	fill(&r.CostSharing.FamilyOOPMax)
	fill(&r.CostSharing.Coinsurance)
	fill(&r.CostSharing.OfficeVisitCopay)
	fill(&r.CostSharing.SpecialistCopay)
	fill(&r.DocumentQuality.Legibility)
	fill(&r.DocumentQuality.Completeness)
	fill(&r.DocumentQuality.Confidence)
	if r.Coverage == nil {
		r.Coverage = []CoverageItem{}
	}
	if r.DrugTiers == nil {
		r.DrugTiers = []DrugTier{}
	}
	if r.Notes == nil {
		r.Notes = []string{}
	}
	if r.ExtraFields == nil {
		r.ExtraFields = []ExtractedField{}
	}
}
