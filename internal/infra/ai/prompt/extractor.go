package prompt

import "fmt"

// GetSystemPrompt provides strict directions and the benefit-report schema
// for JSON output. Every field has an explicit fallback value so the model
// never emits null for "not found".
func GetSystemPrompt() string {
	return `You are an expert insurance benefits analyst. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object following the schema exactly.
- For any field you cannot find in the document, use the exact string "Not found in document". Never use null, never omit a field.
- Monetary values keep the document's formatting (e.g. "$1,500").
- coverage rows use covered values "Yes", "No", or "Partial".
- extra_fields collects every benefit-relevant figure that does not fit another field.
- document_quality is your own assessment: legibility and completeness are "high", "medium" or "low"; confidence is a percentage string like "85%".

Schema (example with empty values):
{
  "plan_overview": {"carrier": "", "plan_name": "", "plan_type": "", "effective_date": "", "group_number": ""},
  "cost_sharing": {"individual_deductible": "", "family_deductible": "", "individual_oop_max": "", "family_oop_max": "", "coinsurance": "", "office_visit_copay": "", "specialist_copay": ""},
  "coverage": [{"service": "", "covered": "<Yes|No|Partial>", "details": ""}],
  "drug_tiers": [{"tier": "", "cost": ""}],
  "notes": [""],
  "extra_fields": [{"label": "", "value": ""}],
  "document_quality": {"legibility": "", "completeness": "", "confidence": ""}
}`
}

// GetPDFUserPrompt builds the user message for a PDF document reachable at a URL.
func GetPDFUserPrompt(documentURL string) string {
	return fmt.Sprintf("Extract the structured benefit report from the insurance plan PDF at this URL and respond with the JSON per schema. URL: %s", documentURL)
}

// GetImageUserPrompt builds the text part accompanying an image attachment.
func GetImageUserPrompt() string {
	return "Extract the structured benefit report from the attached insurance plan document image and respond with the JSON per schema."
}
