package ingestion

import (
	"archive/zip"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Extraction limits.
const (
	extractRowLimit    = 50
	extractSampleRows  = 5
	extractNamingLimit = 5
	minRuleLength      = 20
)

// missingCell is written for empty spreadsheet cells in sample rows.
const missingCell = "nan"

// ruleKeywords mark a document paragraph as a rule.
var ruleKeywords = []string{"must", "always", "never", "should", "avoid", "ensure", "rule", "don't", "do not"}

// Extracted is the on-disk form of extracted_raw.json.
type Extracted struct {
	CaseStudies []CaseStudy `json:"case_studies"`
	Audits      []Audit     `json:"audits"`
}

// CaseStudy is the structure pulled from one spreadsheet export.
type CaseStudy struct {
	File           string           `json:"file"`
	Columns        []string         `json:"columns,omitempty"`
	SampleRows     []map[string]any `json:"sample_rows,omitempty"`
	MatchTypeStats map[string]int   `json:"match_type_stats,omitempty"`
	NamingSamples  []string         `json:"naming_samples,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Audit holds the rule-like paragraphs pulled from one audit document.
type Audit struct {
	File           string   `json:"file"`
	ExtractedRules []string `json:"extracted_rules,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ReadExtracted loads an extracted_raw.json file. A missing file yields an
// empty result and no error.
func ReadExtracted(path string) (*Extracted, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Extracted{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingestion: read %s: %w", path, err)
	}
	var out Extracted
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ingestion: parse %s: %w", path, err)
	}
	return &out, nil
}

// WriteExtracted writes e as indented JSON, creating parent directories.
func WriteExtracted(path string, e *Extracted) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ingestion: create %s: %w", filepath.Dir(path), err)
	}
	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("ingestion: encode extracted data: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("ingestion: write %s: %w", path, err)
	}
	return nil
}

// Extract scans dir for spreadsheet case studies and audit documents. Office
// lock files ("~$...") are skipped. A file that cannot be parsed is recorded
// with its error instead of failing the run.
func Extract(dir string) (*Extracted, error) {
	out := &Extracted{CaseStudies: []CaseStudy{}, Audits: []Audit{}}

	sheets, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("ingestion: list %s: %w", dir, err)
	}
	for _, path := range sheets {
		if strings.Contains(filepath.Base(path), "~$") {
			continue
		}
		out.CaseStudies = append(out.CaseStudies, extractCaseStudy(path))
	}

	docs, err := filepath.Glob(filepath.Join(dir, "*.docx"))
	if err != nil {
		return nil, fmt.Errorf("ingestion: list %s: %w", dir, err)
	}
	for _, path := range docs {
		if strings.Contains(filepath.Base(path), "~$") {
			continue
		}
		out.Audits = append(out.Audits, extractAudit(path))
	}
	return out, nil
}

func extractCaseStudy(path string) CaseStudy {
	name := filepath.Base(path)
	rows, err := firstSheetRows(path)
	if err != nil {
		return CaseStudy{File: name, Error: err.Error()}
	}
	return summariseRows(name, rows)
}

func firstSheetRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(list[0])
}

// summariseRows builds a CaseStudy from a header row and data rows.
func summariseRows(name string, rows [][]string) CaseStudy {
	cs := CaseStudy{File: name, Columns: []string{}, SampleRows: []map[string]any{}, NamingSamples: []string{}}
	if len(rows) == 0 {
		return cs
	}

	for _, h := range rows[0] {
		cs.Columns = append(cs.Columns, strings.ToLower(strings.TrimSpace(h)))
	}
	data := rows[1:]
	if len(data) > extractRowLimit {
		data = data[:extractRowLimit]
	}
	cell := func(r []string, col int) string {
		if col < 0 || col >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[col])
	}

	if col := slices.Index(cs.Columns, "match type"); col >= 0 {
		cs.MatchTypeStats = map[string]int{}
		for _, r := range data {
			if v := cell(r, col); v != "" {
				cs.MatchTypeStats[v]++
			}
		}
	}
	for _, header := range []string{"campaign", "ad group"} {
		col := slices.Index(cs.Columns, header)
		if col < 0 {
			continue
		}
		seen := map[string]bool{}
		for _, r := range data {
			v := cell(r, col)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			cs.NamingSamples = append(cs.NamingSamples, v)
			if len(seen) == extractNamingLimit {
				break
			}
		}
	}

	for i, r := range data {
		if i == extractSampleRows {
			break
		}
		row := make(map[string]any, len(cs.Columns))
		for col, h := range cs.Columns {
			v := cell(r, col)
			if v == "" {
				v = missingCell
			}
			row[h] = v
		}
		cs.SampleRows = append(cs.SampleRows, row)
	}
	return cs
}

func extractAudit(path string) Audit {
	name := filepath.Base(path)
	paras, err := docxParagraphs(path)
	if err != nil {
		return Audit{File: name, Error: err.Error()}
	}
	a := Audit{File: name, ExtractedRules: []string{}}
	for _, p := range paras {
		if len(p) < minRuleLength {
			continue
		}
		if containsAny(strings.ToLower(p), ruleKeywords...) {
			a.ExtractedRules = append(a.ExtractedRules, p)
		}
	}
	return a
}

// docxParagraphs returns the trimmed text of every paragraph in a .docx file,
// read from word/document.xml inside the archive.
func docxParagraphs(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	var doc *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, errors.New("word/document.xml not found in archive")
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()
	return paragraphsFromXML(rc)
}

// wordNS is the WordprocessingML main namespace.
const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// paragraphsFromXML returns the text of the body-level w:p elements, the
// paragraphs a reader sees in the document flow. Paragraphs inside tables,
// content controls and text boxes are skipped, as are DrawingML (a:p, a:t)
// and field instruction text. Run text comes from w:t, w:tab and w:br/w:cr
// directly under the paragraph's runs or hyperlinks.
func paragraphsFromXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras []string
		buf   strings.Builder
		stack []xml.Name
		// para is the stack index of the open body-level paragraph, or -1.
		para = -1
	)
	isWord := func(n xml.Name, local string) bool { return n.Space == wordNS && n.Local == local }

	// inRun reports whether the element at the top of the stack is a child
	// of a run belonging to the open paragraph.
	inRun := func() bool {
		n := len(stack)
		if para < 0 || n < 2 || !isWord(stack[n-2], "r") {
			return false
		}
		return n-3 == para || (n-4 == para && isWord(stack[n-3], "hyperlink"))
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			n := len(stack)
			switch {
			case isWord(t.Name, "p") && n >= 2 && isWord(stack[n-2], "body"):
				para = n - 1
				buf.Reset()
			case isWord(t.Name, "tab") && inRun():
				buf.WriteByte('\t')
			case (isWord(t.Name, "br") || isWord(t.Name, "cr")) && inRun():
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if n := len(stack); n > 0 && isWord(stack[n-1], "t") && inRun() {
				buf.Write(t)
			}
		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				continue
			}
			if n-1 == para {
				if text := strings.TrimSpace(buf.String()); text != "" {
					paras = append(paras, text)
				}
				para = -1
			}
			stack = stack[:n-1]
		}
	}
	return paras, nil
}
