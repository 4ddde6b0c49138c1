package plan

import (
	"encoding/json"
	"fmt"
)

// DTOs with fixed struct-field order. json.Marshal over structs emits fields
// in declaration order, so identical plans serialize to identical bytes.

type scalarDTO struct {
	Type string  `json:"type"`
	Str  string  `json:"str,omitempty"`
	Num  float64 `json:"num,omitempty"`
	Bool bool    `json:"bool,omitempty"`
}

type conditionDTO struct {
	Kind  string     `json:"kind"`
	Field string     `json:"field"`
	Path  string     `json:"path,omitempty"`
	Term  *scalarDTO `json:"term,omitempty"`
	Bound string     `json:"bound,omitempty"`
	Value float64    `json:"value,omitempty"`
}

type sortDTO struct {
	Field      string `json:"field"`
	Order      string `json:"order"`
	NestedPath string `json:"nested_path,omitempty"`
}

type planDTO struct {
	Must   []conditionDTO `json:"must"`
	Filter []conditionDTO `json:"filter"`
	Sort   []sortDTO      `json:"sort,omitempty"`
}

const (
	kindTermStr        = "term"
	kindRangeStr       = "range"
	kindNestedRangeStr = "nested_range"
	kindNestedTermStr  = "nested_term"
)

// Serialize renders the plan as deterministic JSON. Identical plans always
// produce identical bytes, which result-cache key derivation relies on.
func (p Plan) Serialize() []byte {
	dto := planDTO{
		Must:   conditionsToDTO(p.must),
		Filter: conditionsToDTO(p.filter),
	}
	for _, s := range p.sort {
		dto.Sort = append(dto.Sort, sortDTO{
			Field:      s.field,
			Order:      orderToString(s.order),
			NestedPath: s.nestedPath,
		})
	}
	data, err := json.Marshal(dto)
	if err != nil {
		// Marshal of plain structs cannot fail; keep the contract total.
		return []byte("{}")
	}
	return data
}

// Deserialize parses a plan previously produced by Serialize.
func Deserialize(data []byte) (Plan, error) {
	var dto planDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}

	must, err := conditionsFromDTO(dto.Must)
	if err != nil {
		return Plan{}, err
	}
	filter, err := conditionsFromDTO(dto.Filter)
	if err != nil {
		return Plan{}, err
	}

	var sorts []SortClause
	for _, s := range dto.Sort {
		order, err := orderFromString(s.Order)
		if err != nil {
			return Plan{}, err
		}
		sorts = append(sorts, SortClause{field: s.Field, order: order, nestedPath: s.NestedPath})
	}

	return Plan{must: must, filter: filter, sort: sorts}, nil
}

func conditionsToDTO(conds []Condition) []conditionDTO {
	// Empty slice (not null) keeps must/filter byte-stable regardless of
	// how the plan was constructed.
	out := make([]conditionDTO, 0, len(conds))
	for _, c := range conds {
		dto := conditionDTO{Field: c.field, Path: c.path}
		switch c.kind {
		case KindTerm:
			dto.Kind = kindTermStr
			dto.Term = scalarToDTO(c.term)
		case KindNestedTerm:
			dto.Kind = kindNestedTermStr
			dto.Term = scalarToDTO(c.term)
		case KindRange:
			dto.Kind = kindRangeStr
			dto.Bound = boundToString(c.bound)
			dto.Value = c.value
		case KindNestedRange:
			dto.Kind = kindNestedRangeStr
			dto.Bound = boundToString(c.bound)
			dto.Value = c.value
		}
		out = append(out, dto)
	}
	return out
}

func conditionsFromDTO(dtos []conditionDTO) ([]Condition, error) {
	var out []Condition
	for _, dto := range dtos {
		switch dto.Kind {
		case kindTermStr, kindNestedTermStr:
			term, err := scalarFromDTO(dto.Term)
			if err != nil {
				return nil, fmt.Errorf("condition %q: %w", dto.Field, err)
			}
			if dto.Kind == kindTermStr {
				out = append(out, NewTerm(dto.Field, term))
			} else {
				out = append(out, NewNestedTerm(dto.Path, dto.Field, term))
			}
		case kindRangeStr, kindNestedRangeStr:
			bound, err := boundFromString(dto.Bound)
			if err != nil {
				return nil, fmt.Errorf("condition %q: %w", dto.Field, err)
			}
			if dto.Kind == kindRangeStr {
				out = append(out, NewRange(dto.Field, bound, dto.Value))
			} else {
				out = append(out, NewNestedRange(dto.Path, dto.Field, bound, dto.Value))
			}
		default:
			return nil, fmt.Errorf("unknown condition kind %q", dto.Kind)
		}
	}
	return out, nil
}

func scalarToDTO(s Scalar) *scalarDTO {
	switch s.kind {
	case ScalarNumber:
		return &scalarDTO{Type: "number", Num: s.num}
	case ScalarBool:
		return &scalarDTO{Type: "bool", Bool: s.b}
	default:
		return &scalarDTO{Type: "string", Str: s.str}
	}
}

func scalarFromDTO(dto *scalarDTO) (Scalar, error) {
	if dto == nil {
		return Scalar{}, fmt.Errorf("missing term value")
	}
	switch dto.Type {
	case "string":
		return String(dto.Str), nil
	case "number":
		return Number(dto.Num), nil
	case "bool":
		return Bool(dto.Bool), nil
	default:
		return Scalar{}, fmt.Errorf("unknown scalar type %q", dto.Type)
	}
}

func boundToString(b BoundKind) string {
	if b == BoundUpper {
		return "lte"
	}
	return "gte"
}

func boundFromString(s string) (BoundKind, error) {
	switch s {
	case "gte":
		return BoundLower, nil
	case "lte":
		return BoundUpper, nil
	default:
		return BoundLower, fmt.Errorf("unknown bound %q", s)
	}
}

func orderToString(o Order) string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

func orderFromString(s string) (Order, error) {
	switch s {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return Asc, fmt.Errorf("unknown sort order %q", s)
	}
}
