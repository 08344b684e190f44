package rag

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func chunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

func TestChunkFilingEmptyInput(t *testing.T) {
	if got := ChunkFiling("", 1500, 200); len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(got))
	}
	if got := ChunkFiling("   \n\n  ", 1500, 200); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace input, got %d", len(got))
	}
}

func TestChunkFilingReconstruction(t *testing.T) {
	// Plain paragraphs: joining the chunks on blank lines reproduces the
	// normalized input.
	var blocks []string
	for i := 0; i < 20; i++ {
		blocks = append(blocks, fmt.Sprintf("Paragraph %d with some filler text to give it length.", i))
	}
	text := strings.Join(blocks, "\n\n")

	chunks := ChunkFiling(text, 200, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	rejoined := strings.Join(chunkTexts(chunks), "\n\n")
	if rejoined != text {
		t.Error("concatenated chunks do not reconstruct the input")
	}
}

func TestChunkFilingDeterminism(t *testing.T) {
	text := "ITEM 1. Business\n\nWe sell widgets.\n\n| Q | Revenue |\n| --- | --- |\n| Q1 | $10 |\n\nITEM 1A. Risk Factors\n\nCompetition is fierce."
	first := ChunkFiling(text, 100, 0)
	second := ChunkFiling(text, 100, 0)
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking the same text twice produced different sequences")
	}
}

func TestChunkFilingSectionPropagation(t *testing.T) {
	text := strings.Join([]string{
		"Cover page text before any item.",
		"ITEM 1. Business",
		"We sell widgets worldwide.",
		"ITEM 1A. Risk Factors",
		"Competition could reduce margins.",
		"More risk discussion continues here.",
		"ITEM 7A. Quantitative and Qualitative Disclosures About Market Risk",
		"Interest rate exposure detail.",
	}, "\n\n")

	chunks := ChunkFiling(text, 40, 0)

	wantFirst := SectionUnknown
	if chunks[0].Section != wantFirst {
		t.Errorf("chunks[0].Section = %q, want %q", chunks[0].Section, wantFirst)
	}

	var sawRisk, sawMarketRisk bool
	for _, c := range chunks {
		switch {
		case strings.Contains(c.Text, "Competition could"):
			if c.Section != SectionRiskFactors {
				t.Errorf("risk paragraph tagged %q", c.Section)
			}
			sawRisk = true
		case strings.Contains(c.Text, "Interest rate exposure"):
			if c.Section != SectionMarketRisk {
				t.Errorf("market risk paragraph tagged %q, want %q (ITEM 7A must not match ITEM 7)", c.Section, SectionMarketRisk)
			}
			sawMarketRisk = true
		}
	}
	if !sawRisk || !sawMarketRisk {
		t.Fatal("expected to see risk and market-risk paragraphs in chunks")
	}
}

func TestChunkFilingLetterItemsBeforeNumeric(t *testing.T) {
	cases := []struct {
		marker string
		want   SectionTag
	}{
		{"ITEM 1. Business", SectionBusiness},
		{"ITEM 1A. Risk Factors", SectionRiskFactors},
		{"ITEM 1B. Unresolved Staff Comments", SectionUnresolvedComments},
		{"ITEM 7. Management's Discussion", SectionMDandA},
		{"ITEM 7A. Market Risk", SectionMarketRisk},
		{"ITEM 9. Changes in Accountants", SectionChangesDisagreements},
		{"ITEM 9A. Controls and Procedures", SectionControlsProcedures},
		{"item 8. financial statements", SectionFinancialStatements},
	}
	for _, tc := range cases {
		if got := matchSection(tc.marker); got != tc.want {
			t.Errorf("matchSection(%q) = %q, want %q", tc.marker, got, tc.want)
		}
	}
}

func TestChunkFilingKeepsSmallTableIntact(t *testing.T) {
	table := "| Year | Revenue |\n| --- | --- |\n| 2023 | $394.3B |\n| 2022 | $365.8B |"
	text := "ITEM 8. Financial Statements\n\n" + table + "\n\nNotes follow the table."

	chunks := ChunkFiling(text, 1500, 0)

	var tableChunk *Chunk
	for i := range chunks {
		if chunks[i].HasTable && strings.Contains(chunks[i].Text, "| 2023 | $394.3B |") {
			tableChunk = &chunks[i]
		}
	}
	if tableChunk == nil {
		t.Fatal("no chunk carries the table")
	}
	if !strings.Contains(tableChunk.Text, "| 2022 | $365.8B |") {
		t.Error("table was split despite fitting in the target size")
	}
	if tableChunk.Section != SectionFinancialStatements {
		t.Errorf("table chunk section = %q", tableChunk.Section)
	}
}

func TestChunkFilingSplitsOversizedTableWithHeader(t *testing.T) {
	var rows []string
	rows = append(rows, "| Year | Revenue |", "| --- | --- |")
	for i := 0; i < 30; i++ {
		rows = append(rows, fmt.Sprintf("| %d | $%d,000,000 |", 1990+i, 100+i))
	}
	table := strings.Join(rows, "\n")
	header := rows[0] + "\n" + rows[1]

	chunks := ChunkFiling(table, 200, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected the table to split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if !c.HasTable {
			t.Errorf("chunks[%d].HasTable = false", i)
		}
		if !strings.HasPrefix(c.Text, header) {
			t.Errorf("chunks[%d] missing duplicated header:\n%s", i, c.Text)
		}
	}
	// Every data row survives exactly once.
	all := strings.Join(chunkTexts(chunks), "\n")
	for _, row := range rows[2:] {
		if strings.Count(all, row) != 1 {
			t.Errorf("row %q appears %d times", row, strings.Count(all, row))
		}
	}
}

func TestChunkFilingSizeBound(t *testing.T) {
	var blocks []string
	for i := 0; i < 40; i++ {
		blocks = append(blocks, fmt.Sprintf("Short paragraph number %d.", i))
	}
	chunks := ChunkFiling(strings.Join(blocks, "\n\n"), 120, 0)
	for i, c := range chunks {
		if len(c.Text) > 120 {
			t.Errorf("chunks[%d] length %d exceeds target", i, len(c.Text))
		}
	}
}

func TestIsTableBlock(t *testing.T) {
	cases := []struct {
		block string
		want  bool
	}{
		{"| a | b |", true},
		{"|single", false},
		{"no pipes here", false},
		{"text with | one pipe", false},
	}
	for _, tc := range cases {
		if got := isTableBlock(tc.block); got != tc.want {
			t.Errorf("isTableBlock(%q) = %v, want %v", tc.block, got, tc.want)
		}
	}
}
