package plan

import (
	"bytes"
	"reflect"
	"testing"
)

func samplePlan() Plan {
	must := []Condition{
		NewTerm("propertyAddress.city", String("AUSTIN")),
		NewTerm("property_details.allBuildingsSummary.bedroomsCount", Number(3)),
	}
	filter := []Condition{
		NewRange("property_details.allBuildingsSummary.livingAreaSquareFeet", BoundLower, 1500),
		NewNestedRange("property_details.taxAssessment",
			"property_details.taxAssessment.assessedValue.calculatedTotalValue", BoundUpper, 500000),
		NewNestedTerm("property_details.ownership.currentOwners.ownerNames",
			"property_details.ownership.currentOwners.ownerNames.isCorporate", Bool(true)),
	}
	sort := []SortClause{
		NewNestedSort("property_details.taxAssessment",
			"property_details.taxAssessment.assessedValue.calculatedTotalValue", Asc),
	}
	return New(must, filter, sort)
}

func TestSerialize_RoundTrip(t *testing.T) {
	original := samplePlan()

	data := original.Serialize()
	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip mismatch:\noriginal: %+v\nrestored: %+v", original, restored)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	first := samplePlan().Serialize()
	for i := 0; i < 10; i++ {
		if next := samplePlan().Serialize(); !bytes.Equal(first, next) {
			t.Fatalf("bytes differ between runs:\n%s\n%s", first, next)
		}
	}
}

func TestSerialize_EmptyPlanStable(t *testing.T) {
	data := New(nil, nil, nil).Serialize()

	want := `{"must":[],"filter":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !p.IsEmpty() {
		t.Error("expected empty plan")
	}
}

func TestSerialize_NilAndEmptySlicesEqual(t *testing.T) {
	a := New(nil, nil, nil).Serialize()
	b := New([]Condition{}, []Condition{}, []SortClause{}).Serialize()
	if !bytes.Equal(a, b) {
		t.Errorf("nil vs empty construction differ:\n%s\n%s", a, b)
	}
}

func TestDeserialize_UnknownKind(t *testing.T) {
	_, err := Deserialize([]byte(`{"must":[{"kind":"geo","field":"x"}],"filter":[]}`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDeserialize_UnknownBound(t *testing.T) {
	_, err := Deserialize([]byte(`{"must":[],"filter":[{"kind":"range","field":"x","bound":"gt","value":1}]}`))
	if err == nil {
		t.Fatal("expected error for unknown bound")
	}
}

func TestDeserialize_MissingTerm(t *testing.T) {
	_, err := Deserialize([]byte(`{"must":[{"kind":"term","field":"x"}],"filter":[]}`))
	if err == nil {
		t.Fatal("expected error for missing term value")
	}
}

func TestDeserialize_Garbage(t *testing.T) {
	if _, err := Deserialize([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
