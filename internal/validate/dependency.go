package validate

import (
	"fmt"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
)

// CheckDependency applies the cross-field rule "a value is only verifiable
// together with its dependency" to an already-validated field. A quantity
// without a known unit is not syntactically wrong, so the dependency outcome
// is attached to the existing result rather than replacing it.
//
// Nothing happens when the field's own normalized value is empty: the
// dependency is irrelevant then. Otherwise a missing, invalid or empty
// dependency result yields an ERROR for mandatory fields and a WARN for
// optional ones.
func CheckDependency(def *fieldtype.FieldDef, own *FieldResult, depKey string, dep *FieldResult) {
	if own == nil || own.Normalized() == "" {
		return
	}

	severity := SeverityWarn
	if def.Mandatory {
		severity = SeverityError
	}

	var message string
	switch {
	case dep == nil:
		message = fmt.Sprintf("%s depends on %s, which was not checked", def.Key, depKey)
	case !dep.OK:
		message = fmt.Sprintf("%s depends on %s, which is invalid", def.Key, depKey)
	case dep.Normalized() == "":
		message = fmt.Sprintf("%s depends on %s, which is empty", def.Key, depKey)
	default:
		return
	}

	own.AddIssue(Issue{
		Severity: severity,
		Message:  message,
		Hint:     fmt.Sprintf("maintain %s so that %s can be verified", depKey, def.Key),
		Code:     CodeDependency,
	})
}
