package plan

// ScalarKind discriminates scalar term values.
type ScalarKind int

const (
	// ScalarString is a string value.
	ScalarString ScalarKind = iota
	// ScalarNumber is a numeric value.
	ScalarNumber
	// ScalarBool is a boolean value.
	ScalarBool
)

// Scalar is a tagged term value: string, number, or bool.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	b    bool
}

// String creates a string scalar.
func String(s string) Scalar { return Scalar{kind: ScalarString, str: s} }

// Number creates a numeric scalar.
func Number(f float64) Scalar { return Scalar{kind: ScalarNumber, num: f} }

// Bool creates a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: ScalarBool, b: b} }

// Kind returns the scalar variant.
func (s Scalar) Kind() ScalarKind { return s.kind }

// Str returns the string value.
func (s Scalar) Str() string { return s.str }

// Num returns the numeric value.
func (s Scalar) Num() float64 { return s.num }

// Bool returns the boolean value.
func (s Scalar) Bool() bool { return s.b }
