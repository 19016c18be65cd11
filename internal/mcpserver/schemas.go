package mcpserver

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SchemaAll selects every deliverable schema.
const SchemaAll = "all"

// SchemaTypes are the deliverable tabs with a JSON schema, in display order.
var SchemaTypes = []string{
	"keyword_analysis",
	"campaign_structure",
	"ad_copy",
	"roi_calculator",
}

const roiQuickReference = `ROI CALCULATOR QUICK REFERENCE:
- Required inputs: budget (DKK), aov (DKK)
- Optional with defaults: profit_margin (0.30), close_rate (0.15), cpc (8), website_conv_rate (0.03)
- Use IF() formulas in Google Sheets to apply defaults when cells are empty
- Color coding: Yellow = input cells, Green = profitable, Red = unprofitable
`

func schemaPath(dir, schemaType string) string {
	return filepath.Join(dir, schemaType+".schema.json")
}

// DeliverableSchema renders the schema for schemaType read from dir. Read
// failures and unknown types are rendered as messages, never returned as
// errors.
func DeliverableSchema(dir, schemaType string) string {
	if schemaType == SchemaAll {
		var b strings.Builder
		b.WriteString("# Deliverable Schemas\n\n")
		for _, st := range SchemaTypes {
			raw, err := os.ReadFile(schemaPath(dir, st))
			if err != nil {
				fmt.Fprintf(&b, "Error reading %s: %v\n", st, err)
				continue
			}
			fmt.Fprintf(&b, "## %s\n%s\n\n", st, raw)
		}
		return b.String()
	}

	if !slices.Contains(SchemaTypes, schemaType) {
		return fmt.Sprintf("Invalid schema type. Choose from: %s or '%s'", strings.Join(SchemaTypes, ", "), SchemaAll)
	}

	raw, err := os.ReadFile(schemaPath(dir, schemaType))
	if err != nil {
		return fmt.Sprintf("Error reading schema: %v", err)
	}
	if schemaType == "roi_calculator" {
		return fmt.Sprintf("SCHEMA (%s):\n%s\n\n%s", schemaType, raw, roiQuickReference)
	}
	return fmt.Sprintf("SCHEMA (%s):\n%s\n\nUse this schema to validate your output.", schemaType, raw)
}
