package query

import (
	"fmt"
	"strings"
)

const (
	methodologyN = 15
	caseStudyN   = 10
)

// Task types with a fixed methodology query.
const (
	TaskKeywordResearch   = "keyword_research"
	TaskAdCopy            = "ad_copy"
	TaskCampaignStructure = "campaign_structure"
	TaskAudit             = "audit"
)

var methodologyQueries = map[string]string{
	TaskKeywordResearch:   "keyword research methodology iterative approach match types seed keywords",
	TaskAdCopy:            "RSA responsive search ads headlines descriptions sentence case best practices",
	TaskCampaignStructure: "campaign naming convention ad group structure URL strategy",
	TaskAudit:             "account audit optimization recommendations quality score",
}

// MethodologyQuery returns the query text for a task type. Unknown task
// types are used as the query text verbatim.
func MethodologyQuery(task string) string {
	if q, ok := methodologyQueries[task]; ok {
		return q
	}
	return task
}

// CaseStudyQuery returns the query text for a client's case study.
func CaseStudyQuery(client string) string {
	return client + " campaign structure keywords ad groups"
}

// Example is a client whose account analysis is in the knowledge base.
type Example struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Examples is the catalogue of client analyses, in display order.
var Examples = []Example{
	{"spacefinder", "Norwegian office rental - 308 keywords, 21 ad groups, location-based"},
	{"karim_design", "Danish wedding dresses - misspelling handling, booking intent"},
	{"companyons", "Copenhagen co-working - location × service matrix"},
	{"helenes_horeklinik", "Hearing clinic - medical services, city-specific"},
	{"haus20", "Office hotel - German/Danish bilingual"},
}

// ListExamples renders [Examples] as a markdown list.
func ListExamples() string {
	var b strings.Builder
	b.WriteString("# Available Example Analyses\n\n")
	for _, e := range Examples {
		fmt.Fprintf(&b, "- **%s**: %s\n", e.Name, e.Description)
	}
	b.WriteString("\nUse `get_example(client_name)` to get details.")
	return b.String()
}
