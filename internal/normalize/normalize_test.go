package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "KG", Code("kg"))
	assert.Equal(t, "KG", Code("  Kg  "))
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "", Code(""))

	t.Run("Idempotent", func(t *testing.T) {
		for _, raw := range []string{"kg", " eur ", "E", "ST", ""} {
			once := Code(raw)
			assert.Equal(t, once, Code(once), "normalizing twice must be a no-op for %q", raw)
		}
	})
}

func TestBoolean(t *testing.T) {
	truthy := []interface{}{"X", "x", "true", "TRUE", "1", "yes", "YES", "y", "Y", true}
	for _, v := range truthy {
		assert.Equal(t, "X", Boolean(v), "expected %v to be truthy", v)
	}

	falsy := []interface{}{"", "  ", "false", "FALSE", "0", "no", "NO", "n", "N", false, nil}
	for _, v := range falsy {
		assert.Equal(t, "", Boolean(v), "expected %v to be falsy", v)
	}

	t.Run("Unrecognized Passes Through", func(t *testing.T) {
		assert.Equal(t, "maybe", Boolean("maybe"))
	})

	t.Run("Idempotent", func(t *testing.T) {
		for _, raw := range []string{"yes", "no", "X", "", "maybe"} {
			once := Boolean(raw)
			assert.Equal(t, once, Boolean(once))
		}
	})
}

func TestDate(t *testing.T) {
	t.Run("All Formats Converge", func(t *testing.T) {
		for _, raw := range []string{"20231215", "2023-12-15", "15.12.2023", "15/12/2023"} {
			got, err := Date(raw)
			require.NoError(t, err, "format %q should parse", raw)
			assert.Equal(t, "2023-12-15", got)
		}
	})

	t.Run("Empty Is Valid", func(t *testing.T) {
		got, err := Date("")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Impossible Calendar Dates Rejected", func(t *testing.T) {
		for _, raw := range []string{
			"20230230", "2023-02-30", "30.02.2023", // Feb 30
			"20231301", "2023-13-01", // month 13
			"20230132", "32.01.2023", // day 32
		} {
			_, err := Date(raw)
			assert.Error(t, err, "expected %q to be rejected", raw)
		}
	})

	t.Run("Garbage Rejected", func(t *testing.T) {
		for _, raw := range []string{"invalid-date", "2023/12/15", "15-12-2023", "123"} {
			_, err := Date(raw)
			assert.Error(t, err)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once, err := Date("15.12.2023")
		require.NoError(t, err)
		twice, err := Date(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})
}

func TestDecimal(t *testing.T) {
	t.Run("Separator Disambiguation", func(t *testing.T) {
		european, evNum, err := Decimal("1.234,56")
		require.NoError(t, err)
		us, usNum, err2 := Decimal("1,234.56")
		require.NoError(t, err2)

		assert.Equal(t, "1234.56", european)
		assert.Equal(t, "1234.56", us)
		assert.InDelta(t, 1234.56, evNum, 1e-9)
		assert.InDelta(t, 1234.56, usNum, 1e-9)
	})

	t.Run("Single Comma Is Decimal", func(t *testing.T) {
		got, num, err := Decimal("12,5")
		require.NoError(t, err)
		assert.Equal(t, "12.5", got)
		assert.InDelta(t, 12.5, num, 1e-9)
	})

	t.Run("Negative And Stray Characters", func(t *testing.T) {
		got, num, err := Decimal("-1.234,50 EUR")
		require.NoError(t, err)
		assert.Equal(t, "-1234.5", got)
		assert.InDelta(t, -1234.5, num, 1e-9)
	})

	t.Run("Empty Is Valid", func(t *testing.T) {
		got, num, err := Decimal("")
		require.NoError(t, err)
		assert.Equal(t, "", got)
		assert.Zero(t, num)
	})

	t.Run("Non-Numeric Rejected", func(t *testing.T) {
		for _, raw := range []string{"abc", "-", ".", "EUR"} {
			_, _, err := Decimal(raw)
			assert.Error(t, err, "expected %q to be rejected", raw)
		}
	})

	t.Run("Native Numbers Pass Through", func(t *testing.T) {
		got, num, err := Decimal(100)
		require.NoError(t, err)
		assert.Equal(t, "100", got)
		assert.InDelta(t, 100.0, num, 1e-9)
	})

	t.Run("Bounded Precision", func(t *testing.T) {
		got, _, err := Decimal("0.1")
		require.NoError(t, err)
		assert.Equal(t, "0.1", got)
	})
}

func TestCodeList(t *testing.T) {
	t.Run("Split On Separators", func(t *testing.T) {
		assert.Equal(t, []string{"ABAL", "FASY", "PCAB"}, CodeList("abal, fasy;pcab"))
		assert.Equal(t, []string{"ABAL", "FASY"}, CodeList("abal\nfasy"))
	})

	t.Run("Accepts List Input", func(t *testing.T) {
		assert.Equal(t, []string{"ABAL", "FASY"}, CodeList([]string{" abal ", "fasy"}))
		assert.Equal(t, []string{"QURO"}, CodeList([]interface{}{"quro"}))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, CodeList(""))
		assert.Empty(t, CodeList(nil))
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := CodeList("abal, fasy")
		assert.Equal(t, once, CodeList(once))
	})
}

func TestValidCodeElement(t *testing.T) {
	assert.True(t, ValidCodeElement("ABAL"))
	assert.False(t, ValidCodeElement("AB"))
	assert.False(t, ValidCodeElement("ABCDE"))
	assert.False(t, ValidCodeElement("AB1L"))
	assert.False(t, ValidCodeElement(""))
}

func TestChar(t *testing.T) {
	assert.Equal(t, "DE", Char(" de "))
	assert.Equal(t, "", Char(nil))
}
