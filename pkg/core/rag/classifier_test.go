package rag

import "testing"

func TestClassifyContent(t *testing.T) {
	cases := []struct {
		name string
		text string
		want ContentType
	}{
		{
			"table with dollars",
			"| Year | Revenue |\n| --- | --- |\n| 2023 | $394,328 |",
			ContentFinancialTable,
		},
		{
			"table with percentages",
			"| Segment | Margin |\n| --- | --- |\n| Products | 36.5% |",
			ContentFinancialTable,
		},
		{
			"table without numbers is not financial",
			"| Name | Title |\n| --- | --- |\n| Tim | CEO |",
			ContentGeneral,
		},
		{
			"dollar amount in prose",
			"The company repaid $1,000 of term debt during the quarter.",
			ContentFinancialData,
		},
		{
			"revenue wording without numbers",
			"Revenue is recognized when control transfers to the customer.",
			ContentFinancialData,
		},
		{
			"income wording",
			"Net income attributable to shareholders increased year over year.",
			ContentFinancialData,
		},
		{
			"risk wording",
			"Our business faces substantial risk from foreign exchange movements.",
			ContentRiskFactor,
		},
		{
			"revenue beats risk when both present",
			"Declining revenue is a material risk to the business.",
			ContentFinancialData,
		},
		{
			"plain prose",
			"The annual meeting of shareholders will be held in Cupertino.",
			ContentGeneral,
		},
		{"empty", "", ContentGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyContent(tc.text); got != tc.want {
				t.Errorf("ClassifyContent(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestSectionLabel(t *testing.T) {
	cases := []struct {
		tag  SectionTag
		want string
	}{
		{SectionRiskFactors, "Risk Factors"},
		{SectionFinancialStatements, "Financial Statements"},
		{SectionMDandA, "Md And A"},
		{SectionUnknown, "Unknown"},
	}
	for _, tc := range cases {
		if got := tc.tag.Label(); got != tc.want {
			t.Errorf("%q.Label() = %q, want %q", tc.tag, got, tc.want)
		}
	}
}
