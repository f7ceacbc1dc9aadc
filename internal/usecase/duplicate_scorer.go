package usecase

import "github.com/verdictapp/backend/internal/domain"

// Fixed scores for high-confidence signals
const (
	scoreUPCMatch              = 1.0
	scoreNameMatchMissingBrand = 0.9
	scoreNameAndBrandMatch     = 0.95
	scoreNameMatchSimilarBrand = 0.85
	scoreNameMatchOtherBrand   = 0.7
)

// Fuzzy scoring parameters
const (
	similarBrandThreshold = 0.8
	minNameSimilarity     = 0.6
	nameWeight            = 0.6
	brandWeight           = 0.4
	neutralBrandScore     = 0.5
)

// CalculateDuplicateScore estimates how likely two records describe the same product, in [0, 1].
//
// Rules are evaluated in order and the first applicable one wins:
//   - identical non-empty UPCs score 1.0
//   - identical normalized names score 0.9 to 0.7 depending on brand agreement
//   - otherwise names below 0.6 similarity score 0, the rest blend name (60%) and brand (40%)
func CalculateDuplicateScore(a, b domain.ProductRecord) float64 {
	if a.UPC != "" && b.UPC != "" && a.UPC == b.UPC {
		return scoreUPCMatch
	}

	name1 := NormalizeProductName(a.Name)
	name2 := NormalizeProductName(b.Name)

	if name1 == name2 {
		if a.Brand == "" || b.Brand == "" {
			return scoreNameMatchMissingBrand
		}

		brand1 := NormalizeBrandName(a.Brand)
		brand2 := NormalizeBrandName(b.Brand)
		switch {
		case brand1 == brand2:
			return scoreNameAndBrandMatch
		case StringSimilarity(brand1, brand2) > similarBrandThreshold:
			return scoreNameMatchSimilarBrand
		default:
			return scoreNameMatchOtherBrand
		}
	}

	nameSimilarity := StringSimilarity(name1, name2)
	if nameSimilarity < minNameSimilarity {
		return 0
	}

	brandScore := neutralBrandScore
	if a.Brand != "" && b.Brand != "" {
		brandScore = StringSimilarity(NormalizeBrandName(a.Brand), NormalizeBrandName(b.Brand))
	}

	return nameWeight*nameSimilarity + brandWeight*brandScore
}
