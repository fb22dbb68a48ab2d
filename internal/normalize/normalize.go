// Package normalize contains the pure per-category transforms that map raw
// field input to canonical form. Normalizers never report validity beyond
// returning an error for values that cannot be brought into canonical form;
// membership and constraint checks belong to the validate package.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
)

// significantDigits bounds the precision of re-serialized decimals so float
// artifacts do not leak into normalized values.
const significantDigits = 12

var (
	codeElementPattern = regexp.MustCompile(`^[A-Z]{4}$`)
	decimalStrip       = regexp.MustCompile(`[^0-9.\-]`)
)

// Stringify renders a raw record value as a string. Nil becomes the empty
// string; booleans map onto the canonical flag tokens.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return fieldtype.BooleanTrue
		}
		return fieldtype.BooleanFalse
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Code normalizes unit, currency and domain codes: trim and uppercase.
func Code(v interface{}) string {
	return strings.ToUpper(strings.TrimSpace(Stringify(v)))
}

// Boolean maps recognized truthy tokens to the canonical true token and
// recognized falsy tokens to the canonical false token. Unrecognized input
// passes through trimmed, for the validator to reject.
func Boolean(v interface{}) string {
	if b, ok := v.(bool); ok {
		if b {
			return fieldtype.BooleanTrue
		}
		return fieldtype.BooleanFalse
	}
	s := strings.TrimSpace(Stringify(v))
	for _, t := range fieldtype.TruthyTokens {
		if s == t {
			return fieldtype.BooleanTrue
		}
	}
	for _, f := range fieldtype.FalsyTokens {
		if s == f {
			return fieldtype.BooleanFalse
		}
	}
	return s
}

// Date parses a raw date in any active pattern and returns it in ISO
// YYYY-MM-DD form. Empty input is valid and yields the empty string. The
// parsed value is formatted back and compared against the input so that
// only real calendar dates survive.
func Date(v interface{}) (string, error) {
	s := strings.TrimSpace(Stringify(v))
	if s == "" {
		return "", nil
	}
	for _, p := range fieldtype.ActiveDatePatterns() {
		if !p.Regex.MatchString(s) {
			continue
		}
		t, err := time.Parse(p.Layout, s)
		if err != nil {
			return "", fmt.Errorf("invalid calendar date: %q", s)
		}
		if t.Format(p.Layout) != s {
			return "", fmt.Errorf("invalid calendar date: %q", s)
		}
		return t.Format(fieldtype.ISODateLayout), nil
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}

// Decimal normalizes a quantity or amount. It disambiguates European
// (1.234,56) and US (1,234.56) separator conventions by the position of the
// last comma versus the last dot, strips thousands separators, and
// re-serializes the parsed value with bounded precision. It returns the
// canonical string together with the parsed numeric value. Empty input is
// valid and yields ("", 0).
func Decimal(v interface{}) (string, float64, error) {
	if f, ok := numericValue(v); ok {
		return formatDecimal(f), f, nil
	}
	s := strings.TrimSpace(Stringify(v))
	if s == "" {
		return "", 0, nil
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European: dots are thousands separators, comma is decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// US: commas are thousands separators.
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	negative := strings.HasPrefix(s, "-")
	s = decimalStrip.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "-")
	if negative {
		s = "-" + s
	}
	if s == "" || s == "-" || s == "." || s == "-." {
		return "", 0, fmt.Errorf("not a number")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", 0, fmt.Errorf("not a number: %q", s)
	}
	return formatDecimal(f), f, nil
}

// CodeList normalizes a multi-code value: a slice is taken element-wise, a
// string is split on comma, semicolon or newline. Elements are trimmed and
// uppercased; empties are dropped.
func CodeList(v interface{}) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		parts = t
	case []interface{}:
		for _, e := range t {
			parts = append(parts, Stringify(e))
		}
	default:
		s := Stringify(v)
		parts = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ';' || r == '\n' || r == '\r'
		})
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidCodeElement reports whether a normalized code list element matches
// the 4-letter species code format.
func ValidCodeElement(code string) bool {
	return codeElementPattern.MatchString(code)
}

// Char normalizes constrained character fields: trim and uppercase. Length
// and alphanumeric constraints are the validator's business.
func Char(v interface{}) string {
	return strings.ToUpper(strings.TrimSpace(Stringify(v)))
}

func numericValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'g', significantDigits, 64)
	if strings.ContainsAny(s, "eE") {
		if expanded, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(expanded, 'f', -1, 64)
		}
	}
	return s
}
