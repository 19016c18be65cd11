package mcpserver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".schema.json"), []byte(body), 0o644))
}

func TestDeliverableSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "ad_copy", `{"type":"object"}`)
	writeSchema(t, dir, "roi_calculator", `{"type":"array"}`)

	tests := []struct {
		name       string
		schemaType string
		check      func(t *testing.T, got string)
	}{
		{
			name:       "single schema",
			schemaType: "ad_copy",
			check: func(t *testing.T, got string) {
				assert.Equal(t, "SCHEMA (ad_copy):\n{\"type\":\"object\"}\n\nUse this schema to validate your output.", got)
			},
		},
		{
			name:       "roi calculator adds quick reference",
			schemaType: "roi_calculator",
			check: func(t *testing.T, got string) {
				assert.True(t, strings.HasPrefix(got, "SCHEMA (roi_calculator):\n{\"type\":\"array\"}\n\nROI CALCULATOR QUICK REFERENCE:"))
				assert.Contains(t, got, "profit_margin (0.30)")
			},
		},
		{
			name:       "invalid type",
			schemaType: "budget",
			check: func(t *testing.T, got string) {
				assert.Equal(t, "Invalid schema type. Choose from: keyword_analysis, campaign_structure, ad_copy, roi_calculator or 'all'", got)
			},
		},
		{
			name:       "missing file",
			schemaType: "keyword_analysis",
			check: func(t *testing.T, got string) {
				assert.True(t, strings.HasPrefix(got, "Error reading schema: "))
			},
		},
		{
			name:       "all",
			schemaType: "all",
			check: func(t *testing.T, got string) {
				assert.Contains(t, got, "## ad_copy\n{\"type\":\"object\"}\n\n")
				assert.Contains(t, got, "## roi_calculator\n")
				assert.Contains(t, got, "Error reading keyword_analysis: ")
				assert.Contains(t, got, "Error reading campaign_structure: ")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, DeliverableSchema(dir, tt.schemaType))
		})
	}
}
