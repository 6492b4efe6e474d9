package pricing

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// decimalLiteral matches the decimal forms accepted by ECMAScript StringToNumber.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// toNumber converts a decoded JSON value (as produced by a json.Decoder with
// UseNumber) to a float64 the way ECMAScript Number() does. Values that cannot
// be converted return NaN.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case json.Number:
		return stringToNumber(t.String())
	case float64:
		return t
	case string:
		return stringToNumber(t)
	case []any:
		// arrays go through their string form: [] is "", [x] is String(x)
		switch len(t) {
		case 0:
			return 0
		case 1:
			return stringToNumber(toText(t[0], true))
		default:
			return math.NaN()
		}
	default:
		return math.NaN()
	}
}

// stringToNumber parses s with ECMAScript StringToNumber rules: surrounding
// whitespace is ignored, the empty string is zero, decimal, exponent,
// Infinity and 0x/0o/0b literals are accepted and anything else is NaN.
func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSWhitespace)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok || strings.ContainsAny(s[2:], "_+-") {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	// out of range literals still carry the right value (±Inf or 0)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func isJSWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680', '\u2028', '\u2029',
		'\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

// toText returns the textual form of a decoded JSON value the way
// ECMAScript String() does. When inArray is true, null renders as the empty
// string, as Array.prototype.join does.
func toText(v any, inArray bool) string {
	switch t := v.(type) {
	case nil:
		if inArray {
			return ""
		}
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return FormatNumber(stringToNumber(t.String()))
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = toText(e, true)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// toString converts an optional string field. Missing and null values are
// empty, strings are kept and any other value uses its textual form.
func toString(v any) string {
	if v == nil {
		return ""
	}
	return toText(v, false)
}

// truth records the ECMAScript truthiness of a decoded value. The zero value
// means unknown and falls back to the text being non empty.
type truth int8

const (
	truthUnknown truth = iota
	truthFalsy
	truthTruthy
)

func (t truth) is(text string) bool {
	if t == truthUnknown {
		return text != ""
	}
	return t == truthTruthy
}

// truthOf classifies a decoded JSON value: null, false, zero, NaN and the
// empty string are falsy, objects and arrays always are truthy.
func truthOf(v any) truth {
	truthy := true
	switch t := v.(type) {
	case nil:
		truthy = false
	case bool:
		truthy = t
	case json.Number:
		n := stringToNumber(t.String())
		truthy = n != 0 && !math.IsNaN(n)
	case string:
		truthy = t != ""
	}
	if truthy {
		return truthTruthy
	}
	return truthFalsy
}

// FormatNumber renders f the way ECMAScript String(number) does for the
// values this package produces: integers without a fraction and other values
// with the shortest representation that round-trips.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// exponents are never zero padded
		return strings.Replace(strings.Replace(s, "e+0", "e+", 1), "e-0", "e-", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
