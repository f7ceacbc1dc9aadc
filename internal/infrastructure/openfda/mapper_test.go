package openfda

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdictapp/backend/internal/domain"
)

func TestMapToRecall(t *testing.T) {
	report := enforcementReport{
		RecallNumber:       " F-1 ",
		Status:             "Ongoing",
		Classification:     "Class I",
		ProductDescription: "Granola Bar,\n  Peanut Butter\tflavor",
		CodeInfo:           "UPC 0 12345 67890 5\n Lot A",
		RecallingFirm:      "  Acme Foods Inc.",
		ReasonForRecall:    "Undeclared\npeanuts",
		ReportDate:         "20240102",
	}

	want := domain.Recall{
		RecallNumber:       "F-1",
		Status:             "Ongoing",
		Classification:     "Class I",
		ProductDescription: "Granola Bar, Peanut Butter flavor",
		CodeInfo:           "UPC 0 12345 67890 5 Lot A",
		RecallingFirm:      "Acme Foods Inc.",
		ReasonForRecall:    "Undeclared peanuts",
		ReportDate:         "2024-01-02",
	}

	assert.Equal(t, want, mapToRecall(report))
}

func TestFormatReportDate(t *testing.T) {
	tests := []struct {
		input  string
		output string
	}{
		{"20251231", "2025-12-31"},
		{" 20240229 ", "2024-02-29"},
		{"20230229", "20230229"},
		{"", ""},
		{"2025-01-01", "2025-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.output, formatReportDate(tt.input))
		})
	}
}

func TestMapToRecalls_Empty(t *testing.T) {
	recalls := mapToRecalls(nil)
	assert.NotNil(t, recalls)
	assert.Empty(t, recalls)
}
