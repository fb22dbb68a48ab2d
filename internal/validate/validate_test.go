package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
)

func unitDef(mandatory bool) *fieldtype.FieldDef {
	return &fieldtype.FieldDef{
		Key:             "MEINS",
		SourceTable:     "T006",
		Category:        fieldtype.CategoryUnit,
		WhitelistSource: fieldtype.SourceUnits,
		Mandatory:       mandatory,
	}
}

func TestNewIssue(t *testing.T) {
	_, err := NewIssue("", "message")
	assert.Error(t, err)
	_, err = NewIssue(SeverityError, "")
	assert.Error(t, err)

	issue, err := NewIssue(SeverityWarn, "something looks off")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarn, issue.Severity)
}

func TestFieldResultIssueSemantics(t *testing.T) {
	r := NewFieldResult("MEINS", "kg")
	assert.True(t, r.OK)

	r.AddIssue(Issue{Severity: SeverityInfo, Message: "note"})
	assert.True(t, r.OK, "INFO never flips validity")

	r.AddIssue(Issue{Severity: SeverityWarn, Message: "careful"})
	assert.True(t, r.OK, "WARN never flips validity")

	r.AddIssue(Issue{Severity: SeverityError, Message: "broken"})
	assert.False(t, r.OK, "ERROR forces the result invalid")
}

func TestCodeValidation(t *testing.T) {
	whitelist := fieldtype.NewValueSet("KG", "ST")

	t.Run("Member After Normalization", func(t *testing.T) {
		r := Field(unitDef(true), "kg", whitelist)
		assert.True(t, r.OK)
		assert.Equal(t, "KG", r.Normalized())
	})

	t.Run("Non-Member", func(t *testing.T) {
		r := Field(unitDef(true), "XYZ", whitelist)
		assert.False(t, r.OK)
		require.Len(t, r.Errors(), 1)
		assert.Contains(t, r.Errors()[0], "XYZ")
		assert.Contains(t, r.Errors()[0], "T006")
	})

	t.Run("No Whitelist Skips With Warning", func(t *testing.T) {
		r := Field(unitDef(true), "kg", nil)
		assert.True(t, r.OK)
		assert.Len(t, r.Warnings(), 1)
	})

	t.Run("Empty Non-Mandatory Skipped", func(t *testing.T) {
		r := Field(unitDef(false), "", whitelist)
		assert.True(t, r.OK)
		assert.True(t, r.Skipped())
	})

	t.Run("Empty Mandatory Fails", func(t *testing.T) {
		r := Field(unitDef(true), "  ", whitelist)
		assert.False(t, r.OK)
	})
}

func TestBooleanValidation(t *testing.T) {
	def := &fieldtype.FieldDef{Key: "KZKFG", Category: fieldtype.CategoryBoolean}

	r := Field(def, "yes", nil)
	assert.True(t, r.OK)
	assert.Equal(t, "X", r.Normalized())

	r = Field(def, "maybe", nil)
	assert.False(t, r.OK)
}

func TestDateValidation(t *testing.T) {
	def := &fieldtype.FieldDef{Key: "ERDAT", Category: fieldtype.CategoryDate}

	r := Field(def, "15.12.2023", nil)
	assert.True(t, r.OK)
	assert.Equal(t, "2023-12-15", r.Normalized())

	r = Field(def, "invalid-date", nil)
	assert.False(t, r.OK)
	require.Len(t, r.Issues, 1)
	assert.Contains(t, r.Issues[0].Hint, "YYYYMMDD", "hint lists accepted formats")
}

func TestDecimalValidation(t *testing.T) {
	def := &fieldtype.FieldDef{Key: "MENGE", Category: fieldtype.CategoryQuantity}

	r := Field(def, "1.234,56", nil)
	assert.True(t, r.OK)
	assert.Equal(t, "1234.56", r.Normalized())
	require.NotNil(t, r.Numeric)
	assert.InDelta(t, 1234.56, *r.Numeric, 1e-9)

	r = Field(def, "abc", nil)
	assert.False(t, r.OK)
	require.Len(t, r.Issues, 1)
	assert.Contains(t, r.Issues[0].Hint, "decimal separator")
}

func TestCodeArrayValidation(t *testing.T) {
	def := &fieldtype.FieldDef{
		Key:             "TIMBER_CODES",
		Category:        fieldtype.CategoryCodeArray,
		WhitelistSource: fieldtype.SourceSpecies,
		Mandatory:       true,
	}
	whitelist := fieldtype.NewValueSet(fieldtype.SpeciesCodes...)

	t.Run("Malformed Codes", func(t *testing.T) {
		r := Field(def, "ABAL,AB,ABCDE", whitelist)
		assert.False(t, r.OK)
		require.NotEmpty(t, r.Errors())
		assert.Contains(t, r.Errors()[0], "AB")
		assert.Contains(t, r.Errors()[0], "ABCDE")
	})

	t.Run("Format And Whitelist Failures Co-Occur", func(t *testing.T) {
		r := Field(def, "AB,ZZZZ", whitelist)
		assert.False(t, r.OK)
		assert.Len(t, r.Errors(), 2)
	})

	t.Run("All Valid", func(t *testing.T) {
		r := Field(def, "ABAL, fasy", whitelist)
		assert.True(t, r.OK)
		assert.Equal(t, "ABAL,FASY", r.Normalized())
	})

	t.Run("Empty List Mandatory", func(t *testing.T) {
		r := Field(def, []string{}, whitelist)
		assert.False(t, r.OK)
	})
}

func TestCharValidation(t *testing.T) {
	def := &fieldtype.FieldDef{
		Key:      "HERKL",
		Category: fieldtype.CategoryChar,
		CharConstraints: &fieldtype.CharConstraints{
			ExactLength:  2,
			Alphanumeric: true,
		},
	}

	r := Field(def, "de", nil)
	assert.True(t, r.OK)
	assert.Equal(t, "DE", r.Normalized())

	r = Field(def, "DEU", nil)
	assert.False(t, r.OK)

	r = Field(def, "D-", nil)
	assert.False(t, r.OK, "exact length matches but alphanumeric fails")
}

func TestCheckDependency(t *testing.T) {
	quantity := &fieldtype.FieldDef{
		Key:          "MENGE",
		Category:     fieldtype.CategoryQuantity,
		Dependencies: []string{"MEINS"},
		Mandatory:    true,
	}
	optional := quantity.CloneWith(func(d *fieldtype.FieldDef) { d.Mandatory = false })

	valid := func() *FieldResult {
		r := NewFieldResult("MENGE", "100")
		r.SetNormalized("100")
		return r
	}

	t.Run("Missing Dependency Mandatory", func(t *testing.T) {
		own := valid()
		CheckDependency(quantity, own, "MEINS", nil)
		assert.False(t, own.OK)
	})

	t.Run("Missing Dependency Optional", func(t *testing.T) {
		own := valid()
		CheckDependency(optional, own, "MEINS", nil)
		assert.True(t, own.OK)
		assert.NotEmpty(t, own.Warnings())
	})

	t.Run("Invalid Dependency", func(t *testing.T) {
		dep := NewFieldResult("MEINS", "XYZ")
		dep.AddIssue(Issue{Severity: SeverityError, Message: "not a unit"})

		own := valid()
		CheckDependency(quantity, own, "MEINS", dep)
		assert.False(t, own.OK)
	})

	t.Run("Empty Dependency", func(t *testing.T) {
		dep := NewFieldResult("MEINS", "")
		dep.SetNormalized("")

		own := valid()
		CheckDependency(quantity, own, "MEINS", dep)
		assert.False(t, own.OK)
	})

	t.Run("Own Value Empty Means Irrelevant", func(t *testing.T) {
		own := NewFieldResult("MENGE", "")
		own.SetNormalized("")
		CheckDependency(quantity, own, "MEINS", nil)
		assert.True(t, own.OK)
		assert.Empty(t, own.Issues)
	})

	t.Run("Healthy Dependency", func(t *testing.T) {
		dep := NewFieldResult("MEINS", "KG")
		dep.SetNormalized("KG")

		own := valid()
		CheckDependency(quantity, own, "MEINS", dep)
		assert.True(t, own.OK)
		assert.Empty(t, own.Issues)
	})
}
