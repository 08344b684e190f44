package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe  = regexp.MustCompile(` {2,}`)
	underscoresRe = regexp.MustCompile(`_{3,}`)
	cellSpaceRe   = regexp.MustCompile(`\s+`)
)

// ExtractText converts a filing's HTML into plain text. Tables are
// rewritten as pipe-delimited rows with a separator line so the chunker
// can recognize and preserve them; everything else becomes
// paragraph-separated text.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, meta, link, head, noscript").Remove()

	// Swap each table for its pipe-delimited rendering before pulling
	// the document text, so tables keep their position in the flow.
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rendered := tableToPipes(table)
		if rendered == "" {
			table.Remove()
			return
		}
		table.ReplaceWithHtml("<p>\n\n" + rendered + "\n\n</p>")
	})

	var parts []string
	doc.Find("h1, h2, h3, h4, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 1 {
			parts = append(parts, text)
		}
	})

	text := strings.Join(parts, "\n\n")
	if len(parts) < 100 {
		// Structured extraction found too little; fall back to the raw
		// document text.
		text = strings.TrimSpace(doc.Text())
	}

	return cleanText(text), nil
}

// tableToPipes flattens an HTML table into pipe-delimited rows with a
// markdown-style separator after the first row. Tables with fewer than
// two non-empty rows are dropped.
func tableToPipes(table *goquery.Selection) string {
	var rows [][]string
	maxCols := 0

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		nonEmpty := false
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := cellSpaceRe.ReplaceAllString(strings.TrimSpace(cell.Text()), " ")
			if text == "" {
				text = "-"
			} else {
				nonEmpty = true
			}
			cells = append(cells, text)
		})
		if len(cells) > 0 && nonEmpty {
			rows = append(rows, cells)
			if len(cells) > maxCols {
				maxCols = len(cells)
			}
		}
	})

	if len(rows) < 2 {
		return ""
	}

	var lines []string
	for i, row := range rows {
		for len(row) < maxCols {
			row = append(row, "-")
		}
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
		if i == 0 {
			seps := make([]string, maxCols)
			for j := range seps {
				seps[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

func cleanText(text string) string {
	text = underscoresRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
