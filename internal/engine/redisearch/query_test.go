package redisearch

import (
	"encoding/binary"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/parcelgrid/propsearch/internal/domain/plan"
	"github.com/parcelgrid/propsearch/internal/engine"
)

func TestBuildCondition_StringTerm(t *testing.T) {
	c := plan.NewTerm("city", plan.String("AUSTIN"))
	if got := buildCondition(c); got != "@city:{AUSTIN}" {
		t.Errorf("got %q", got)
	}
}

func TestBuildCondition_TagEscaping(t *testing.T) {
	c := plan.NewTerm("county", plan.String("ST. JOHNS"))
	if got := buildCondition(c); got != `@county:{ST\.\ JOHNS}` {
		t.Errorf("got %q", got)
	}
}

func TestBuildCondition_NumericTermIsDegenerateRange(t *testing.T) {
	c := plan.NewTerm("bedrooms", plan.Number(3))
	if got := buildCondition(c); got != "@bedrooms:[3 3]" {
		t.Errorf("got %q", got)
	}
}

func TestBuildCondition_BoolTerm(t *testing.T) {
	c := plan.NewNestedTerm("owner", "isCorporate", plan.Bool(true))
	if got := buildCondition(c); got != "@isCorporate:{true}" {
		t.Errorf("got %q", got)
	}
}

func TestBuildCondition_Ranges(t *testing.T) {
	upper := plan.NewRange("price", plan.BoundUpper, 500000)
	if got := buildCondition(upper); got != "@price:[-inf 500000]" {
		t.Errorf("upper: got %q", got)
	}
	lower := plan.NewRange("livingArea", plan.BoundLower, 2000)
	if got := buildCondition(lower); got != "@livingArea:[2000 +inf]" {
		t.Errorf("lower: got %q", got)
	}
}

func TestFieldAlias_FlattensDots(t *testing.T) {
	if got := fieldAlias("address.city"); got != "address_city" {
		t.Errorf("got %q", got)
	}
	if got := fieldAlias("price"); got != "price" {
		t.Errorf("got %q", got)
	}
}

func TestBuildPlanFilter_JoinsMustAndFilter(t *testing.T) {
	p := plan.New(
		[]plan.Condition{
			plan.NewTerm("bedrooms", plan.Number(3)),
			plan.NewTerm("city", plan.String("DALLAS")),
		},
		[]plan.Condition{
			plan.NewRange("price", plan.BoundUpper, 350000),
		},
		nil,
	)
	want := "@bedrooms:[3 3] @city:{DALLAS} @price:[-inf 350000]"
	if got := buildPlanFilter(p); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildPlanFilter_EmptyPlan(t *testing.T) {
	if got := buildPlanFilter(plan.Plan{}); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatNum(t *testing.T) {
	cases := map[float64]string{
		500000: "500000",
		2.5:    "2.5",
		0:      "0",
	}
	for in, want := range cases {
		if got := formatNum(in); got != want {
			t.Errorf("formatNum(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestVectorToBlob_LittleEndianFloat32(t *testing.T) {
	blob := vectorToBlob([]float32{1.5, -2})
	if len(blob) != 8 {
		t.Fatalf("blob length %d, want 8", len(blob))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(blob)[:4]))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(blob)[4:]))
	if first != 1.5 || second != -2 {
		t.Errorf("decoded %v %v", first, second)
	}
}

func TestBuildArgs_HybridWithFilter(t *testing.T) {
	p := plan.New(
		[]plan.Condition{plan.NewTerm("city", plan.String("AUSTIN"))},
		nil,
		nil,
	)
	q := &engine.Query{
		Plan:          p,
		Vector:        []float32{0.1, 0.2},
		CandidatePool: 100,
		Offset:        0,
		Limit:         20,
		Timeout:       time.Second,
	}

	args, hybrid := buildArgs("idx:properties", q)
	if !hybrid {
		t.Fatal("expected hybrid query")
	}
	want := []string{
		"idx:properties",
		"(@city:{AUSTIN})=>[KNN 100 @vector $BLOB]",
		"LIMIT", "0", "20",
		"TIMEOUT", "1000",
		"PARAMS", "2", "BLOB", vectorToBlob(q.Vector),
		"DIALECT", "2",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %q, want %q", args, want)
	}
}

func TestBuildArgs_HybridNoFilterMatchesAll(t *testing.T) {
	q := &engine.Query{
		Vector:        []float32{0.5},
		CandidatePool: 50,
		Limit:         10,
	}
	args, hybrid := buildArgs("idx:properties", q)
	if !hybrid {
		t.Fatal("expected hybrid query")
	}
	if args[1] != "*=>[KNN 50 @vector $BLOB]" {
		t.Errorf("query string = %q", args[1])
	}
}

func TestBuildArgs_KeywordWithScores(t *testing.T) {
	p := plan.New(
		[]plan.Condition{plan.NewRange("price", plan.BoundUpper, 500000)},
		nil,
		nil,
	)
	q := &engine.Query{Plan: p, Offset: 20, Limit: 20, Timeout: 2 * time.Second}

	args, hybrid := buildArgs("idx:properties", q)
	if hybrid {
		t.Fatal("expected keyword query")
	}
	want := []string{
		"idx:properties",
		"@price:[-inf 500000]",
		"WITHSCORES",
		"LIMIT", "20", "20",
		"TIMEOUT", "2000",
		"DIALECT", "2",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %q, want %q", args, want)
	}
}

func TestBuildArgs_EmptyKeywordQueryMatchesAll(t *testing.T) {
	q := &engine.Query{Limit: 20}
	args, _ := buildArgs("idx:properties", q)
	if args[1] != "*" {
		t.Errorf("query string = %q, want *", args[1])
	}
	if args[2] != "WITHSCORES" {
		t.Errorf("args[2] = %q", args[2])
	}
}

func TestBuildArgs_SortUsesFirstClauseOnly(t *testing.T) {
	p := plan.New(nil, nil, []plan.SortClause{
		plan.NewNestedSort("valuation", "price", plan.Asc),
		plan.NewSort("livingArea", plan.Desc),
	})
	q := &engine.Query{Plan: p, Limit: 20}

	args, _ := buildArgs("idx:properties", q)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "SORTBY price ASC") {
		t.Errorf("missing first sort clause in %q", joined)
	}
	if strings.Contains(joined, "livingArea") {
		t.Errorf("second sort clause leaked into %q", joined)
	}
}

func TestBuildArgs_NoTimeoutOmitsArg(t *testing.T) {
	q := &engine.Query{Limit: 20}
	args, _ := buildArgs("idx:properties", q)
	for _, a := range args {
		if a == "TIMEOUT" {
			t.Fatal("TIMEOUT present for zero timeout")
		}
	}
}

func TestBuildArgs_DescendingSort(t *testing.T) {
	p := plan.New(nil, nil, []plan.SortClause{plan.NewSort("livingArea", plan.Desc)})
	q := &engine.Query{Plan: p, Limit: 20}
	args, _ := buildArgs("idx:properties", q)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "SORTBY livingArea DESC") {
		t.Errorf("missing DESC sort in %q", joined)
	}
}
