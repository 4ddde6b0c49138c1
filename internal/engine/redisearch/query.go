package redisearch

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/parcelgrid/propsearch/internal/domain/plan"
)

// buildPlanFilter renders all plan conditions as an FT.SEARCH query string.
// The index is flat, so must and filter conditions both become pre-filters;
// nested paths are folded into their flattened field aliases.
func buildPlanFilter(p plan.Plan) string {
	var parts []string
	for _, c := range p.Must() {
		parts = append(parts, buildCondition(c))
	}
	for _, c := range p.Filter() {
		parts = append(parts, buildCondition(c))
	}
	return strings.Join(parts, " ")
}

func buildCondition(c plan.Condition) string {
	switch c.Kind() {
	case plan.KindTerm, plan.KindNestedTerm:
		return buildTermFilter(c)
	case plan.KindRange, plan.KindNestedRange:
		return buildRangeFilter(c)
	default:
		return ""
	}
}

func buildTermFilter(c plan.Condition) string {
	alias := fieldAlias(c.Field())
	term := c.Term()
	switch term.Kind() {
	case plan.ScalarNumber:
		// Exact numeric match via a degenerate range.
		v := formatNum(term.Num())
		return fmt.Sprintf("@%s:[%s %s]", alias, v, v)
	case plan.ScalarBool:
		return fmt.Sprintf("@%s:{%s}", alias, strconv.FormatBool(term.Bool()))
	default:
		return fmt.Sprintf("@%s:{%s}", alias, tagEscaper.Replace(term.Str()))
	}
}

func buildRangeFilter(c plan.Condition) string {
	alias := fieldAlias(c.Field())
	if c.Bound() == plan.BoundUpper {
		return fmt.Sprintf("@%s:[-inf %s]", alias, formatNum(c.Value()))
	}
	return fmt.Sprintf("@%s:[%s +inf]", alias, formatNum(c.Value()))
}

// fieldAlias maps a dotted record path to its index alias.
func fieldAlias(field string) string {
	return strings.ReplaceAll(field, ".", "_")
}

func orderKeyword(s plan.SortClause) string {
	if s.Order() == plan.Desc {
		return "DESC"
	}
	return "ASC"
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
