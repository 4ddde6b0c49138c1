// Package plan holds the structured filter/sort plan produced by parsing
// free-text queries. Plans are immutable once built and serialize to
// byte-identical JSON for identical inputs, which makes them safe to use
// inside cache keys.
package plan

// Kind discriminates the closed set of condition variants.
type Kind int

const (
	// KindTerm is an exact match on a field.
	KindTerm Kind = iota
	// KindRange is a single-bound numeric range on a field.
	KindRange
	// KindNestedRange is a range on a field beneath a nested document path.
	KindNestedRange
	// KindNestedTerm is an exact match beneath a nested document path.
	KindNestedTerm
)

// BoundKind distinguishes lower (>=) from upper (<=) range bounds.
type BoundKind int

const (
	// BoundLower is an inclusive lower bound.
	BoundLower BoundKind = iota
	// BoundUpper is an inclusive upper bound.
	BoundUpper
)

// Condition is a single filter clause, one of the Kind variants.
type Condition struct {
	kind  Kind
	field string
	path  string
	term  Scalar
	bound BoundKind
	value float64
}

// NewTerm creates an exact-match condition.
func NewTerm(field string, value Scalar) Condition {
	return Condition{kind: KindTerm, field: field, term: value}
}

// NewRange creates a single-bound numeric range condition.
func NewRange(field string, bound BoundKind, value float64) Condition {
	return Condition{kind: KindRange, field: field, bound: bound, value: value}
}

// NewNestedRange creates a range condition beneath a nested path.
func NewNestedRange(path, field string, bound BoundKind, value float64) Condition {
	return Condition{kind: KindNestedRange, field: field, path: path, bound: bound, value: value}
}

// NewNestedTerm creates an exact-match condition beneath a nested path.
func NewNestedTerm(path, field string, value Scalar) Condition {
	return Condition{kind: KindNestedTerm, field: field, path: path, term: value}
}

// Kind returns the condition variant.
func (c Condition) Kind() Kind { return c.kind }

// Field returns the target field name.
func (c Condition) Field() string { return c.field }

// Path returns the nested document path (nested variants only).
func (c Condition) Path() string { return c.path }

// Term returns the exact-match value (term variants only).
func (c Condition) Term() Scalar { return c.term }

// Bound returns the range bound kind (range variants only).
func (c Condition) Bound() BoundKind { return c.bound }

// Value returns the range bound value (range variants only).
func (c Condition) Value() float64 { return c.value }

// Order is a sort direction.
type Order int

const (
	// Asc sorts ascending.
	Asc Order = iota
	// Desc sorts descending.
	Desc
)

// SortClause is a single explicit sort directive.
type SortClause struct {
	field      string
	order      Order
	nestedPath string
}

// NewSort creates a sort clause.
func NewSort(field string, order Order) SortClause {
	return SortClause{field: field, order: order}
}

// NewNestedSort creates a sort clause on a field beneath a nested path.
func NewNestedSort(path, field string, order Order) SortClause {
	return SortClause{field: field, order: order, nestedPath: path}
}

// Field returns the sort field.
func (s SortClause) Field() string { return s.field }

// Order returns the sort direction.
func (s SortClause) Order() Order { return s.order }

// NestedPath returns the nested path, empty for top-level fields.
func (s SortClause) NestedPath() string { return s.nestedPath }

// Plan is the immutable parse result: must conditions participate in
// relevance scoring alongside vector similarity, filter conditions are a
// pure boolean gate, and sort (at most one clause) overrides score ordering.
type Plan struct {
	must   []Condition
	filter []Condition
	sort   []SortClause
}

// New creates a plan. The condition slices are not copied; callers hand
// over ownership.
func New(must, filter []Condition, sort []SortClause) Plan {
	return Plan{must: must, filter: filter, sort: sort}
}

// Must returns the scoring conditions.
func (p Plan) Must() []Condition { return p.must }

// Filter returns the non-scoring gate conditions.
func (p Plan) Filter() []Condition { return p.filter }

// Sort returns the explicit sort clauses, empty when none was inferred.
func (p Plan) Sort() []SortClause { return p.sort }

// IsEmpty reports whether the plan carries no conditions and no sort.
func (p Plan) IsEmpty() bool {
	return len(p.must) == 0 && len(p.filter) == 0 && len(p.sort) == 0
}
