// Package validate turns normalized field values into structured validation
// results. Validation failures are data, never errors: each check attaches
// issues to a FieldResult and only configuration mistakes (unknown fields,
// malformed definitions) surface as Go errors.
package validate

import "fmt"

// Severity ranks a validation issue.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
	SeverityInfo  Severity = "INFO"
)

// Issue codes used by consumers to recognize specific outcomes.
const (
	CodeSkipped           = "skipped"
	CodeLookupUnavailable = "lookup_unavailable"
	CodeNotInWhitelist    = "not_in_whitelist"
	CodeInvalidFormat     = "invalid_format"
	CodeConstraint        = "constraint"
	CodeDependency        = "dependency"
	CodeMandatoryEmpty    = "mandatory_empty"
)

// Issue is one finding attached to a field result. Immutable once created.
type Issue struct {
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Hint     string                 `json:"hint,omitempty"`
	Code     string                 `json:"code,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewIssue constructs an issue and rejects missing severity or message.
func NewIssue(severity Severity, message string) (Issue, error) {
	if severity == "" {
		return Issue{}, fmt.Errorf("issue requires a severity")
	}
	if message == "" {
		return Issue{}, fmt.Errorf("issue requires a message")
	}
	return Issue{Severity: severity, Message: message}, nil
}

func errorIssue(code, message, hint string) Issue {
	return Issue{Severity: SeverityError, Message: message, Hint: hint, Code: code}
}

func warnIssue(code, message string) Issue {
	return Issue{Severity: SeverityWarn, Message: message, Code: code}
}

func infoIssue(code, message string) Issue {
	return Issue{Severity: SeverityInfo, Message: message, Code: code}
}

// FieldResult is the outcome of validating one field of one record.
type FieldResult struct {
	Key             string  `json:"key"`
	RawValue        any     `json:"raw_value"`
	NormalizedValue *string `json:"normalized_value"`
	// Numeric carries the parsed value for quantity and amount fields. It is
	// used for scoring and never serialized into the report.
	Numeric *float64 `json:"-"`
	OK      bool     `json:"ok"`
	Issues  []Issue  `json:"issues,omitempty"`
}

// NewFieldResult creates a result that starts out valid.
func NewFieldResult(key string, raw any) *FieldResult {
	return &FieldResult{Key: key, RawValue: raw, OK: true}
}

// AddIssue appends an issue; an ERROR forces the result invalid, WARN and
// INFO never do.
func (r *FieldResult) AddIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.OK = false
	}
}

// SetNormalized records the canonical value.
func (r *FieldResult) SetNormalized(v string) {
	r.NormalizedValue = &v
}

// Normalized returns the canonical value or the empty string when none was
// produced.
func (r *FieldResult) Normalized() string {
	if r.NormalizedValue == nil {
		return ""
	}
	return *r.NormalizedValue
}

// Skipped reports whether validation was skipped for an empty non-mandatory
// value.
func (r *FieldResult) Skipped() bool {
	for _, issue := range r.Issues {
		if issue.Code == CodeSkipped {
			return true
		}
	}
	return false
}

// Errors returns the messages of all ERROR issues.
func (r *FieldResult) Errors() []string {
	return r.messages(SeverityError)
}

// Warnings returns the messages of all WARN issues.
func (r *FieldResult) Warnings() []string {
	return r.messages(SeverityWarn)
}

func (r *FieldResult) messages(sev Severity) []string {
	var out []string
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue.Message)
		}
	}
	return out
}
