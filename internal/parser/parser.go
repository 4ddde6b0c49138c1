// Package parser turns free-text property queries into structured filter
// plans. Parsing is a pure, total function: unrecognized text simply
// contributes no conditions, and identical input always yields a
// byte-identical plan.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/parcelgrid/propsearch/internal/domain/plan"
)

var (
	bedroomRe  = regexp.MustCompile(`(\d+)\s*\+?\s*(?:bed(?:room)?s?|br)`)
	bathroomRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+?\s*bath(?:room)?s?`)
	underRe    = regexp.MustCompile(`(?:under|below|less than|max)\s*\$?\s*([\d,]+)(k?)`)
	overRe     = regexp.MustCompile(`(?:over|above|more than|min)\s*\$?\s*([\d,]+)(k?)`)
	sqftRe     = regexp.MustCompile(`(\d+)\s*\+?\s*(?:sq\.?\s*ft|square\s*feet|sqft)`)
	acresRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+?\s*acres?`)
	stateRe    = regexp.MustCompile(`\b([A-Z]{2})\b`)
	countyRe   = regexp.MustCompile(`(\w+)\s+county`)
)

// Parse extracts filter and sort conditions from a free-text query.
// Extractors run in a fixed order over the same input, so different
// attribute categories compose while each category contributes at most one
// condition. The state-code pass runs against the original-case input; all
// other passes use the lowercased form.
func Parse(text string) plan.Plan {
	query := strings.TrimSpace(strings.ToLower(text))

	var must, filter []plan.Condition

	// Bedrooms: "3 bed" is an exact match, "3+ bed" a lower bound.
	if m := bedroomRe.FindStringSubmatch(query); m != nil {
		beds, _ := strconv.Atoi(m[1])
		if strings.Contains(m[0], "+") {
			filter = append(filter, plan.NewRange(FieldBedrooms, plan.BoundLower, float64(beds)))
		} else {
			must = append(must, plan.NewTerm(FieldBedrooms, plan.Number(float64(beds))))
		}
	}

	// Bathrooms: fractional counts allowed; exact matches truncate to int.
	if m := bathroomRe.FindStringSubmatch(query); m != nil {
		baths, _ := strconv.ParseFloat(m[1], 64)
		if strings.Contains(m[0], "+") {
			filter = append(filter, plan.NewRange(FieldBathrooms, plan.BoundLower, baths))
		} else {
			must = append(must, plan.NewTerm(FieldBathrooms, plan.Number(float64(int(baths)))))
		}
	}

	// Assessed value upper bound: "under 500k", "below $350,000", "max 1m"-style
	// magnitudes are not supported; only the k suffix is.
	if m := underRe.FindStringSubmatch(query); m != nil {
		filter = append(filter, plan.NewNestedRange(
			PathTaxAssessment, FieldAssessedValue, plan.BoundUpper, moneyValue(m[1], m[2]),
		))
	}

	// Assessed value lower bound: "over 200k", "min $100,000".
	if m := overRe.FindStringSubmatch(query); m != nil {
		filter = append(filter, plan.NewNestedRange(
			PathTaxAssessment, FieldAssessedValue, plan.BoundLower, moneyValue(m[1], m[2]),
		))
	}

	// Square footage contributes only as a lower bound ("1500+ sqft");
	// a bare "1500 sqft" adds nothing.
	if m := sqftRe.FindStringSubmatch(query); m != nil {
		if strings.Contains(m[0], "+") {
			sqft, _ := strconv.Atoi(m[1])
			filter = append(filter, plan.NewRange(FieldLivingArea, plan.BoundLower, float64(sqft)))
		}
	}

	for _, city := range cities {
		if strings.Contains(query, city) {
			must = append(must, plan.NewTerm(FieldCity, plan.String(strings.ToUpper(city))))
			break
		}
	}

	// State codes only match two consecutive uppercase letters in the
	// original-case input; lowercasing first would turn common two-letter
	// words into false positives.
	if m := stateRe.FindStringSubmatch(text); m != nil {
		must = append(must, plan.NewTerm(FieldState, plan.String(m[1])))
	}

	if m := countyRe.FindStringSubmatch(query); m != nil {
		must = append(must, plan.NewTerm(FieldCounty, plan.String(strings.ToUpper(m[1]))))
	}

	for _, lu := range landUses {
		if strings.Contains(query, lu.keyword) {
			must = append(must, plan.NewTerm(FieldLandUse, plan.String(lu.code)))
			break
		}
	}

	if containsAny(query, corporateWords) {
		filter = append(filter, plan.NewNestedTerm(PathOwnerNames, FieldIsCorporate, plan.Bool(true)))
	}

	// Lot size contributes only as a lower bound, like square footage.
	if m := acresRe.FindStringSubmatch(query); m != nil {
		if strings.Contains(m[0], "+") {
			acres, _ := strconv.ParseFloat(m[1], 64)
			filter = append(filter, plan.NewRange(FieldLotAcres, plan.BoundLower, acres))
		}
	}

	return plan.New(must, filter, sortClauses(query))
}

// moneyValue parses a thousands-separated numeric literal. A k suffix
// multiplies by 1000 only when the magnitude is below 10,000: "500k" is
// 500000 while "500000" (already in full form) is left alone. The threshold
// is an imprecise but load-bearing heuristic callers rely on. Literals too
// large for an exact representation saturate rather than collapse to zero,
// so an absurd upper bound still matches everything below it.
func moneyValue(digits, kSuffix string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		v = math.MaxFloat64
	}
	if kSuffix == "k" && v < 10000 {
		v *= 1000
	}
	return v
}

func sortClauses(query string) []plan.SortClause {
	switch {
	case containsAny(query, sortCheapWords):
		return []plan.SortClause{plan.NewNestedSort(PathTaxAssessment, FieldAssessedValue, plan.Asc)}
	case containsAny(query, sortExpensiveWords):
		return []plan.SortClause{plan.NewNestedSort(PathTaxAssessment, FieldAssessedValue, plan.Desc)}
	case containsAny(query, sortLargestWords):
		return []plan.SortClause{plan.NewSort(FieldLivingArea, plan.Desc)}
	case containsAny(query, sortSmallestWords):
		return []plan.SortClause{plan.NewSort(FieldLivingArea, plan.Asc)}
	default:
		return nil
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
