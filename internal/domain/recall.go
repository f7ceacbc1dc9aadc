package domain

// Recall is a food enforcement report from the recall feed
type Recall struct {
	RecallNumber       string `json:"recallNumber"`
	Status             string `json:"status"`
	Classification     string `json:"classification"`
	ProductDescription string `json:"productDescription"`
	CodeInfo           string `json:"codeInfo,omitempty"`
	RecallingFirm      string `json:"recallingFirm"`
	ReasonForRecall    string `json:"reasonForRecall,omitempty"`
	ReportDate         string `json:"reportDate,omitempty"` // YYYY-MM-DD
}

// RecallMatch pairs a recall with the catalog products it may refer to
type RecallMatch struct {
	Recall  Recall        `json:"recall"`
	Product ProductRecord `json:"product"`
	Matches []MatchResult `json:"matches"`
}
