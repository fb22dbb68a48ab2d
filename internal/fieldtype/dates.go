package fieldtype

import "regexp"

// DatePattern describes one accepted raw date representation.
type DatePattern struct {
	Name   string
	Regex  *regexp.Regexp
	Layout string
	// Active patterns participate in parsing. A pattern can be declared but
	// disabled when its shape is ambiguous with another pattern.
	Active bool
}

// ISODateLayout is the canonical output form for normalized dates.
const ISODateLayout = "2006-01-02"

// DatePatterns lists the accepted raw date forms. DD/MM/YYYY and MM/DD/YYYY
// share the same shape; only the day-first reading is active because the
// master data originates from European systems. Activating both would make
// inputs like 03/04/2023 ambiguous.
var DatePatterns = []DatePattern{
	{Name: "compact", Regex: regexp.MustCompile(`^\d{8}$`), Layout: "20060102", Active: true},
	{Name: "iso", Regex: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), Layout: "2006-01-02", Active: true},
	{Name: "dotted", Regex: regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`), Layout: "02.01.2006", Active: true},
	{Name: "slash-dmy", Regex: regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), Layout: "02/01/2006", Active: true},
	{Name: "slash-mdy", Regex: regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), Layout: "01/02/2006", Active: false},
}

// ActiveDatePatterns returns the patterns that participate in parsing.
func ActiveDatePatterns() []DatePattern {
	out := make([]DatePattern, 0, len(DatePatterns))
	for _, p := range DatePatterns {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}
