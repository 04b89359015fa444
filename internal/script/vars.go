package script

import (
	"fmt"
	"go/token"
	"math"
	"slices"
	"strconv"
	"strings"
)

// declarations renders package-level var declarations for the entries of
// vars that can be expressed as Go literals. Keys that are not identifiers,
// that are keywords, or that are listed in reserved are skipped, as are
// values of any other type.
func declarations(vars map[string]any, reserved map[string]bool) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		if !token.IsIdentifier(k) || reserved[k] {
			continue
		}
		if lit, typ, ok := literal(vars[k]); ok {
			fmt.Fprintf(&b, "var %s %s = %s\n", k, typ, lit)
		}
	}
	return b.String()
}

func literal(v any) (lit, typ string, ok bool) {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x), "string", true
	case bool:
		return strconv.FormatBool(x), "bool", true
	case int:
		return strconv.Itoa(x), "int", true
	case int32:
		return strconv.FormatInt(int64(x), 10), "int", true
	case int64:
		return strconv.FormatInt(x, 10), "int", true
	case float32:
		return literal(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", "", false
		}
		return strconv.FormatFloat(x, 'g', -1, 64), "float64", true
	}
	return "", "", false
}
