package parser

// Catalog field paths targeted by the extractors. These match the record
// schema of the property index.
const (
	FieldBedrooms   = "property_details.allBuildingsSummary.bedroomsCount"
	FieldBathrooms  = "property_details.allBuildingsSummary.bathroomsCount"
	FieldLivingArea = "property_details.allBuildingsSummary.livingAreaSquareFeet"
	FieldLotAcres   = "property_details.siteLocation.lot.areaAcres"

	PathTaxAssessment  = "property_details.taxAssessment"
	FieldAssessedValue = "property_details.taxAssessment.assessedValue.calculatedTotalValue"

	FieldCity   = "propertyAddress.city"
	FieldState  = "propertyAddress.state"
	FieldCounty = "propertyAddress.county"

	FieldLandUse = "property_details.siteLocation.landUseAndZoningCodes.stateLandUseDescription"

	PathOwnerNames   = "property_details.ownership.currentOwners.ownerNames"
	FieldIsCorporate = "property_details.ownership.currentOwners.ownerNames.isCorporate"
)

// cities is the fixed gazetteer, checked by case-insensitive substring match
// in order; the first hit wins. No word-boundary enforcement, so a city name
// embedded inside another word is a known false-positive source.
var cities = []string{
	"honolulu", "san francisco", "los angeles", "new york", "chicago",
	"houston", "phoenix", "philadelphia", "san antonio", "san diego",
	"dallas", "austin", "seattle", "denver", "boston", "portland",
	"miami", "atlanta", "las vegas", "detroit", "nashville", "memphis",
	"louisville", "baltimore", "milwaukee", "albuquerque", "tucson",
	"fresno", "sacramento", "kansas city", "mesa", "virginia beach",
	"oakland", "minneapolis", "tulsa", "arlington", "tampa", "orlando",
}

// landUses maps keywords to canonical land-use codes; checked in order,
// first match wins.
var landUses = []struct {
	keyword string
	code    string
}{
	{"residential", "RESIDENTIAL"},
	{"commercial", "COMMERCIAL"},
	{"industrial", "INDUSTRIAL"},
	{"agricultural", "AGRICULTURAL"},
	{"vacant", "VACANT"},
}

// corporateWords are synonyms that trigger the corporate-ownership condition.
var corporateWords = []string{"corporate", "company", "corporation", "llc", "inc"}

// Sort keyword groups, checked in order; the first group with a hit decides
// the single sort clause. "least expensive" lands in the cheap group because
// it is checked before the expensive group.
var (
	sortCheapWords     = []string{"cheap", "affordable", "lowest", "least expensive"}
	sortExpensiveWords = []string{"expensive", "luxury", "highest", "most valuable", "premium"}
	sortLargestWords   = []string{"largest", "biggest", "spacious"}
	sortSmallestWords  = []string{"smallest", "compact"}
)
