package rag

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize bounds chunk text length except for oversized
	// tables, which are split by row with the header re-emitted.
	DefaultChunkSize = 1500
	// DefaultChunkOverlap is accepted for interface compatibility and
	// currently unused: chunking stays block-aligned so concatenating
	// chunks reconstructs the filing.
	DefaultChunkOverlap = 200
)

// sectionPattern maps an "ITEM n." style marker to its section tag.
// Letter-suffixed items (1A, 7A, 9A) cannot collide with their numeric
// base because each pattern requires punctuation or whitespace after
// the item number.
type sectionPattern struct {
	re  *regexp.Regexp
	tag SectionTag
}

var sectionPatterns = []sectionPattern{
	{regexp.MustCompile(`(?i)ITEM\s*1A[.\s]`), SectionRiskFactors},
	{regexp.MustCompile(`(?i)ITEM\s*1B[.\s]`), SectionUnresolvedComments},
	{regexp.MustCompile(`(?i)ITEM\s*1[.\s]`), SectionBusiness},
	{regexp.MustCompile(`(?i)ITEM\s*2[.\s]`), SectionProperties},
	{regexp.MustCompile(`(?i)ITEM\s*3[.\s]`), SectionLegalProceedings},
	{regexp.MustCompile(`(?i)ITEM\s*4[.\s]`), SectionMineSafety},
	{regexp.MustCompile(`(?i)ITEM\s*5[.\s]`), SectionMarketInfo},
	{regexp.MustCompile(`(?i)ITEM\s*6[.\s]`), SectionSelectedFinancials},
	{regexp.MustCompile(`(?i)ITEM\s*7A[.\s]`), SectionMarketRisk},
	{regexp.MustCompile(`(?i)ITEM\s*7[.\s]`), SectionMDandA},
	{regexp.MustCompile(`(?i)ITEM\s*8[.\s]`), SectionFinancialStatements},
	{regexp.MustCompile(`(?i)ITEM\s*9A[.\s]`), SectionControlsProcedures},
	{regexp.MustCompile(`(?i)ITEM\s*9[.\s]`), SectionChangesDisagreements},
	{regexp.MustCompile(`(?i)ITEM\s*10[.\s]`), SectionDirectorsOfficers},
	{regexp.MustCompile(`(?i)ITEM\s*11[.\s]`), SectionExecutiveComp},
	{regexp.MustCompile(`(?i)ITEM\s*12[.\s]`), SectionSecurityOwnership},
	{regexp.MustCompile(`(?i)ITEM\s*13[.\s]`), SectionRelatedTransactions},
	{regexp.MustCompile(`(?i)ITEM\s*14[.\s]`), SectionPrincipalAccountant},
	{regexp.MustCompile(`(?i)ITEM\s*15[.\s]`), SectionExhibits},
}

var blockSplitRe = regexp.MustCompile(`\n\n+`)

// matchSection returns the section tag a block's header announces, or
// "" when the block is not a section header.
func matchSection(block string) SectionTag {
	for _, sp := range sectionPatterns {
		if sp.re.MatchString(block) {
			return sp.tag
		}
	}
	return ""
}

// isTableBlock reports whether a block is a markdown-style pipe table:
// leading pipe plus at least one interior pipe.
func isTableBlock(block string) bool {
	return strings.HasPrefix(block, "|") && strings.Contains(block[1:], "|")
}

// ChunkFiling splits raw filing text into section-tagged, table-aware
// chunks. Blocks are separated by blank lines; the running section tag
// updates whenever a block matches an "ITEM n." marker and propagates
// onto all following blocks until the next marker. Tables are kept
// intact when they fit in targetSize; oversized tables are split by row
// with the header + separator duplicated onto every fragment. Plain
// text blocks are greedily accumulated up to targetSize.
//
// The transformation is pure and deterministic; an empty input yields
// an empty slice, which the indexer treats as a reportable failure.
func ChunkFiling(text string, targetSize, overlap int) []Chunk {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	_ = overlap // reserved, see DefaultChunkOverlap

	var chunks []Chunk
	currentSection := SectionUnknown

	blocks := blockSplitRe.Split(text, -1)

	var current strings.Builder
	currentChunkSection := currentSection

	flush := func(section SectionTag, hasTable bool) {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:     strings.TrimSpace(current.String()),
			Section:  section,
			HasTable: hasTable,
		})
		current.Reset()
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if tag := matchSection(block); tag != "" {
			currentSection = tag
		}

		if isTableBlock(block) {
			// Keep tables intact. If the running buffer plus the table
			// would overflow, flush the buffer first.
			if current.Len() > 0 && current.Len()+len(block) > targetSize {
				flush(currentChunkSection, false)
			}

			if len(block) <= targetSize {
				if current.Len() > 0 {
					current.WriteString("\n\n")
					current.WriteString(block)
				} else {
					current.WriteString(block)
					currentChunkSection = currentSection
				}
				flush(currentChunkSection, true)
				continue
			}

			// Oversized table: split by row, duplicating header +
			// separator so every fragment stands on its own.
			lines := strings.Split(block, "\n")
			headerEnd := 2
			if headerEnd > len(lines) {
				headerEnd = len(lines)
			}
			header := strings.Join(lines[:headerEnd], "\n")

			tableChunk := header
			for _, line := range lines[headerEnd:] {
				if len(tableChunk)+len(line) > targetSize {
					chunks = append(chunks, Chunk{
						Text:     strings.TrimSpace(tableChunk),
						Section:  currentSection,
						HasTable: true,
					})
					tableChunk = header + "\n" + line
				} else {
					tableChunk += "\n" + line
				}
			}
			if tableChunk != "" && tableChunk != header {
				chunks = append(chunks, Chunk{
					Text:     strings.TrimSpace(tableChunk),
					Section:  currentSection,
					HasTable: true,
				})
			}
			continue
		}

		// Regular text block: greedy accumulation.
		if current.Len()+len(block) > targetSize {
			flush(currentChunkSection, false)
			current.WriteString(block)
			currentChunkSection = currentSection
		} else {
			if current.Len() > 0 {
				current.WriteString("\n\n")
				current.WriteString(block)
			} else {
				current.WriteString(block)
				currentChunkSection = currentSection
			}
		}
	}

	if current.Len() > 0 {
		last := strings.TrimSpace(current.String())
		chunks = append(chunks, Chunk{
			Text:     last,
			Section:  currentChunkSection,
			HasTable: strings.Contains(last, "|"),
		})
	}

	return chunks
}

// titleCase converts a snake_case tag to a display label.
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
