package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/source"
)

type fakeSource struct {
	rows map[string][]source.Row
	errs map[string]error
}

func (f *fakeSource) Read(ctx context.Context, entitySet string, q source.Query) ([]source.Row, error) {
	if err, ok := f.errs[entitySet]; ok {
		return nil, err
	}
	return f.rows[entitySet], nil
}

func isoDaysAgo(days int) string {
	return time.Now().AddDate(0, 0, -days).Format("2006-01-02")
}

func TestLoadStatus(t *testing.T) {
	src := &fakeSource{rows: map[string][]source.Row{
		MaterialEntitySet: {
			{"MATNR": "M-ACTIVE"},
			{"MATNR": "M-INACTIVE"},
			{"MATNR": "M-DORMANT"},
		},
		DocumentEntitySet: {
			{"MATNR": "M-ACTIVE", "BUDAT": isoDaysAgo(30)},
			{"MATNR": "M-ACTIVE", "BUDAT": isoDaysAgo(60)},
			{"MATNR": "M-INACTIVE", "BUDAT": "2020-01-15"},
			{"MATNR": "M-UNTRACKED", "BUDAT": isoDaysAgo(10)},
		},
	}}

	c := NewClassifier(src, zap.NewNop())
	records := c.LoadStatus(context.Background(), 12)

	t.Run("Active Within Lookback", func(t *testing.T) {
		rec, ok := records["M-ACTIVE"]
		require.True(t, ok)
		assert.Equal(t, StatusActive, rec.Status)
		assert.Equal(t, 2, rec.TransactionCount)
		require.NotNil(t, rec.LastTransaction)
		assert.Equal(t, isoDaysAgo(30), rec.LastTransaction.Format("2006-01-02"))
	})

	t.Run("Inactive Outside Lookback", func(t *testing.T) {
		rec := records["M-INACTIVE"]
		assert.Equal(t, StatusInactive, rec.Status)
		assert.Equal(t, 1, rec.TransactionCount)
	})

	t.Run("Dormant Without Transactions", func(t *testing.T) {
		rec := records["M-DORMANT"]
		assert.Equal(t, StatusDormant, rec.Status)
		assert.Zero(t, rec.TransactionCount)
		assert.Nil(t, rec.LastTransaction)
	})

	t.Run("Union Includes Transaction-Only Materials", func(t *testing.T) {
		rec, ok := records["M-UNTRACKED"]
		require.True(t, ok, "materials that appear only in documents are classified too")
		assert.Equal(t, StatusActive, rec.Status)
	})
}

func TestLoadStatusDegradesToEmpty(t *testing.T) {
	t.Run("Material List Unavailable", func(t *testing.T) {
		src := &fakeSource{errs: map[string]error{MaterialEntitySet: fmt.Errorf("gateway down")}}
		records := NewClassifier(src, zap.NewNop()).LoadStatus(context.Background(), 12)
		assert.Empty(t, records)
	})

	t.Run("History Unavailable", func(t *testing.T) {
		src := &fakeSource{
			rows: map[string][]source.Row{MaterialEntitySet: {{"MATNR": "M1"}}},
			errs: map[string]error{DocumentEntitySet: fmt.Errorf("timeout")},
		}
		records := NewClassifier(src, zap.NewNop()).LoadStatus(context.Background(), 12)
		assert.Empty(t, records)
	})
}

func TestLoadStatusCountsUnparseableDates(t *testing.T) {
	src := &fakeSource{rows: map[string][]source.Row{
		MaterialEntitySet: {{"MATNR": "M1"}},
		DocumentEntitySet: {
			{"MATNR": "M1", "BUDAT": "not-a-date"},
			{"MATNR": "M1", "BUDAT": isoDaysAgo(5)},
		},
	}}

	records := NewClassifier(src, zap.NewNop()).LoadStatus(context.Background(), 12)
	rec := records["M1"]
	assert.Equal(t, 2, rec.TransactionCount, "unparseable dates still count as transactions")
	assert.Equal(t, StatusActive, rec.Status)
}

func TestParseTransactionDate(t *testing.T) {
	t.Run("Wrapped Milliseconds", func(t *testing.T) {
		ts := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
		parsed, ok := ParseTransactionDate(fmt.Sprintf("/Date(%d)/", ts.UnixMilli()))
		require.True(t, ok)
		assert.True(t, parsed.Equal(ts))
	})

	t.Run("Native Time", func(t *testing.T) {
		now := time.Now()
		parsed, ok := ParseTransactionDate(now)
		require.True(t, ok)
		assert.True(t, parsed.Equal(now))
	})

	t.Run("ISO Strings", func(t *testing.T) {
		for _, s := range []string{"2023-06-15", "2023-06-15T12:00:00Z", "20230615"} {
			_, ok := ParseTransactionDate(s)
			assert.True(t, ok, "expected %q to parse", s)
		}
	})

	t.Run("Unparseable", func(t *testing.T) {
		for _, v := range []interface{}{nil, "", "not-a-date", 42} {
			_, ok := ParseTransactionDate(v)
			assert.False(t, ok)
		}
	})
}
