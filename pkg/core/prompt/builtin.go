package prompt

func init() {
	r := Get()

	r.Register(&Template{
		ID:           "rag.grounded_answer",
		Name:         "Grounded Filing Q&A",
		Category:     "rag",
		Description:  "Answers a question using only retrieved filing context, with section citations.",
		SystemPrompt: "You are an expert financial analyst.",
		UserTmpl: `Answer the following question based ONLY on the provided context from {{.Ticker}}'s SEC filing.

IMPORTANT INSTRUCTIONS:
1. If the context contains financial tables with numbers, extract the EXACT numbers.
2. Always include specific dollar amounts, percentages, and dates when available.
3. If the answer cannot be found in the context, say "I cannot find this information in the filing."
4. Cite the SEC section where you found the information (e.g., "From Item 7 - MD&A").

Context from SEC Filing:
{{.Context}}

Question: {{.Question}}

Provide a clear answer with SPECIFIC NUMBERS and citations:`,
		Version: "1.0",
	})

	r.Register(&Template{
		ID:           "metrics.extract_value",
		Name:         "Metric Value Extraction",
		Category:     "metrics",
		Description:  "Parses a natural-language answer into a structured numeric value.",
		SystemPrompt: "You extract financial figures into strict JSON. Only return the JSON, nothing else.",
		UserTmpl: `Extract the specific numeric value for "{{.MetricName}}" from the following text.

TEXT:
{{.Answer}}

INSTRUCTIONS:
1. Find the most recent/relevant value for {{.MetricName}}
2. Return the value in a structured format
3. If the value is in millions or billions, convert to full number
4. For percentages, return the number without the % sign
5. If you cannot find the value, set found to false

Return your answer in this exact JSON format:
{
    "found": true or false,
    "raw_value": "the exact text containing the number (e.g., '$394.3 billion')",
    "numeric_value": the number as a float (e.g., 394300000000),
    "confidence": your confidence from 0.0 to 1.0
}

Only return the JSON, nothing else.`,
		Version: "1.0",
	})

	r.Register(&Template{
		ID:           "search.synthesis",
		Name:         "Search Result Synthesis",
		Category:     "search",
		Description:  "Synthesizes multi-angle web search results into one finding.",
		SystemPrompt: "You are a financial analyst synthesizing research.",
		UserTmpl: `Query: {{.Query}}

Search Results:
{{.Results}}

Provide a concise synthesis of the key findings that answer the query.
Focus on facts and cite sources where relevant.`,
		Version: "1.0",
	})

	r.Register(&Template{
		ID:           "report.narrative",
		Name:         "Report Narrative",
		Category:     "report",
		Description:  "Turns the structured analysis into a short investor-facing summary.",
		SystemPrompt: "You are an equity analyst writing a brief, factual summary. Use Markdown. Do not invent numbers.",
		UserTmpl: `Write a short narrative summary (at most 200 words) of this analysis of {{.Ticker}}.

Metrics:
{{.Metrics}}

Risks:
{{.Risks}}

Opportunities:
{{.Opportunities}}

Recommendation: {{.Recommendation}}`,
		Version: "1.0",
	})
}
