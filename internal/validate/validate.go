package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
	"github.com/aegisshield/readiness-engine/internal/normalize"
)

var alphanumericPattern = regexp.MustCompile(`^[A-Z0-9]*$`)

// Field validates a single raw value against its definition. The whitelist
// may be nil when the field has no lookup source or the lookup could not be
// resolved; code-membership checks are then skipped with a warning.
func Field(def *fieldtype.FieldDef, value any, whitelist fieldtype.ValueSet) *FieldResult {
	result := NewFieldResult(def.Key, value)

	raw := strings.TrimSpace(normalize.Stringify(value))
	if raw == "" && !isList(value) {
		if def.Mandatory {
			result.SetNormalized("")
			result.AddIssue(errorIssue(CodeMandatoryEmpty,
				fmt.Sprintf("%s is mandatory but empty", def.Key), ""))
			return result
		}
		result.SetNormalized("")
		result.AddIssue(infoIssue(CodeSkipped,
			fmt.Sprintf("%s is empty, validation skipped", def.Key)))
		return result
	}

	switch def.Category {
	case fieldtype.CategoryUnit, fieldtype.CategoryCurrency, fieldtype.CategoryDomain:
		validateCode(def, value, whitelist, result)
	case fieldtype.CategoryBoolean:
		validateBoolean(def, value, result)
	case fieldtype.CategoryDate:
		validateDate(def, value, result)
	case fieldtype.CategoryQuantity, fieldtype.CategoryAmount:
		validateDecimal(def, value, result)
	case fieldtype.CategoryCodeArray:
		validateCodeArray(def, value, whitelist, result)
	case fieldtype.CategoryChar:
		validateChar(def, value, result)
	default:
		result.AddIssue(errorIssue(CodeInvalidFormat,
			fmt.Sprintf("%s has unsupported category %s", def.Key, def.Category), ""))
	}
	return result
}

func validateCode(def *fieldtype.FieldDef, value any, whitelist fieldtype.ValueSet, result *FieldResult) {
	normalized := normalize.Code(value)
	result.SetNormalized(normalized)

	if len(whitelist) == 0 {
		result.AddIssue(warnIssue(CodeLookupUnavailable,
			fmt.Sprintf("%s validation skipped, lookup %q unavailable", def.Key, def.WhitelistSource)))
		return
	}
	if !whitelist.Contains(normalized) {
		result.AddIssue(errorIssue(CodeNotInWhitelist,
			fmt.Sprintf("%s value %q is not a valid %s entry", def.Key, normalized, whitelistLabel(def)),
			fmt.Sprintf("maintain the value in %s", whitelistLabel(def))))
	}
}

func validateBoolean(def *fieldtype.FieldDef, value any, result *FieldResult) {
	normalized := normalize.Boolean(value)
	result.SetNormalized(normalized)

	if normalized != fieldtype.BooleanTrue && normalized != fieldtype.BooleanFalse {
		result.AddIssue(errorIssue(CodeInvalidFormat,
			fmt.Sprintf("%s value %q is not a recognized boolean", def.Key, normalized),
			`use "X" for true and empty for false`))
	}
}

func validateDate(def *fieldtype.FieldDef, value any, result *FieldResult) {
	normalized, err := normalize.Date(value)
	if err != nil {
		result.AddIssue(errorIssue(CodeInvalidFormat, fmt.Sprintf("%s: %v", def.Key, err),
			"accepted formats: YYYYMMDD, YYYY-MM-DD, DD.MM.YYYY, DD/MM/YYYY"))
		return
	}
	result.SetNormalized(normalized)
}

func validateDecimal(def *fieldtype.FieldDef, value any, result *FieldResult) {
	normalized, numeric, err := normalize.Decimal(value)
	if err != nil {
		result.AddIssue(errorIssue(CodeInvalidFormat,
			fmt.Sprintf("%s value %q is not a number", def.Key, normalize.Stringify(value)),
			`use "." or "," as decimal separator`))
		return
	}
	result.SetNormalized(normalized)
	result.Numeric = &numeric
}

func validateCodeArray(def *fieldtype.FieldDef, value any, whitelist fieldtype.ValueSet, result *FieldResult) {
	codes := normalize.CodeList(value)
	result.SetNormalized(strings.Join(codes, ","))

	if len(codes) == 0 {
		if def.Mandatory {
			result.AddIssue(errorIssue(CodeMandatoryEmpty,
				fmt.Sprintf("%s is mandatory but empty", def.Key), ""))
			return
		}
		result.AddIssue(infoIssue(CodeSkipped,
			fmt.Sprintf("%s is empty, validation skipped", def.Key)))
		return
	}

	var badFormat, notListed []string
	for _, code := range codes {
		if !normalize.ValidCodeElement(code) {
			badFormat = append(badFormat, code)
			continue
		}
		if len(whitelist) > 0 && !whitelist.Contains(code) {
			notListed = append(notListed, code)
		}
	}
	if len(badFormat) > 0 {
		result.AddIssue(errorIssue(CodeInvalidFormat,
			fmt.Sprintf("%s contains malformed codes: %s", def.Key, strings.Join(badFormat, ", ")),
			"species codes are 4 alphabetic characters"))
	}
	if len(notListed) > 0 {
		result.AddIssue(errorIssue(CodeNotInWhitelist,
			fmt.Sprintf("%s contains unknown codes: %s", def.Key, strings.Join(notListed, ", ")),
			fmt.Sprintf("maintain the codes in %s", whitelistLabel(def))))
	}
}

func validateChar(def *fieldtype.FieldDef, value any, result *FieldResult) {
	normalized := normalize.Char(value)
	result.SetNormalized(normalized)

	cc := def.CharConstraints
	if cc == nil {
		return
	}
	if cc.ExactLength > 0 && len(normalized) != cc.ExactLength {
		result.AddIssue(errorIssue(CodeConstraint,
			fmt.Sprintf("%s must be exactly %d characters, got %d", def.Key, cc.ExactLength, len(normalized)), ""))
	}
	if cc.MaxLength > 0 && len(normalized) > cc.MaxLength {
		result.AddIssue(errorIssue(CodeConstraint,
			fmt.Sprintf("%s exceeds maximum length %d", def.Key, cc.MaxLength), ""))
	}
	if cc.Alphanumeric && !alphanumericPattern.MatchString(normalized) {
		result.AddIssue(errorIssue(CodeConstraint,
			fmt.Sprintf("%s must be alphanumeric", def.Key), ""))
	}
}

func whitelistLabel(def *fieldtype.FieldDef) string {
	if def.SourceTable != "" {
		return def.SourceTable
	}
	if def.WhitelistSource != "" {
		return def.WhitelistSource
	}
	return "the lookup table"
}

func isList(value any) bool {
	switch value.(type) {
	case []string, []interface{}:
		return true
	default:
		return false
	}
}
