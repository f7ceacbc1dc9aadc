package openfda

import (
	"strings"
	"time"

	"github.com/verdictapp/backend/internal/domain"
)

// enforcementResponse is the body of /food/enforcement.json
type enforcementResponse struct {
	Meta struct {
		Results struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []enforcementReport `json:"results"`
}

// enforcementReport holds the openFDA fields the recall matcher uses
type enforcementReport struct {
	RecallNumber       string `json:"recall_number"`
	Status             string `json:"status"`
	Classification     string `json:"classification"`
	ProductDescription string `json:"product_description"`
	CodeInfo           string `json:"code_info"`
	RecallingFirm      string `json:"recalling_firm"`
	ReasonForRecall    string `json:"reason_for_recall"`
	ReportDate         string `json:"report_date"` // YYYYMMDD
}

// mapToRecall converts an openFDA enforcement report to our domain Recall
func mapToRecall(report enforcementReport) domain.Recall {
	return domain.Recall{
		RecallNumber:       strings.TrimSpace(report.RecallNumber),
		Status:             strings.TrimSpace(report.Status),
		Classification:     strings.TrimSpace(report.Classification),
		ProductDescription: collapseSpace(report.ProductDescription),
		CodeInfo:           collapseSpace(report.CodeInfo),
		RecallingFirm:      strings.TrimSpace(report.RecallingFirm),
		ReasonForRecall:    collapseSpace(report.ReasonForRecall),
		ReportDate:         formatReportDate(report.ReportDate),
	}
}

func mapToRecalls(reports []enforcementReport) []domain.Recall {
	recalls := make([]domain.Recall, 0, len(reports))
	for _, report := range reports {
		recalls = append(recalls, mapToRecall(report))
	}
	return recalls
}

// formatReportDate turns openFDA's YYYYMMDD into YYYY-MM-DD, leaving other values as they are
func formatReportDate(s string) string {
	s = strings.TrimSpace(s)
	t, err := time.Parse("20060102", s)
	if err != nil {
		return s
	}
	return t.Format(time.DateOnly)
}

// collapseSpace folds the line breaks openFDA embeds in free-text fields
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
