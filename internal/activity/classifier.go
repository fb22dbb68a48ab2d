// Package activity classifies referenced materials as ACTIVE, INACTIVE or
// DORMANT from their transaction history within a lookback window.
package activity

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/source"
)

// Status is the activity classification of a material.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusDormant  Status = "DORMANT"
)

// Record is the classification result for one material. The map of records
// is built once per run and read-only afterwards.
type Record struct {
	Status           Status     `json:"status"`
	LastTransaction  *time.Time `json:"last_transaction"`
	TransactionCount int        `json:"transaction_count"`
}

// Entity sets and fields consumed by the classifier.
const (
	MaterialEntitySet = "MaterialSet"
	MaterialKeyField  = "MATNR"

	DocumentEntitySet   = "MaterialDocumentSet"
	DocumentKeyField    = "MATNR"
	DocumentDateField   = "BUDAT"
	DefaultLookbackMons = 12
)

// wrappedMillis matches the gateway's wrapped millisecond timestamp form,
// e.g. /Date(1670000000000)/.
var wrappedMillis = regexp.MustCompile(`^/Date\((-?\d+)\)/$`)

// Classifier derives activity status maps from a record source.
type Classifier struct {
	src    source.RecordSource
	logger *zap.Logger
	now    func() time.Time
}

// NewClassifier creates a classifier over the given record source.
func NewClassifier(src source.RecordSource, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{src: src, logger: logger, now: time.Now}
}

// LoadStatus classifies every tracked material and every material that
// appears only in transaction documents (the union of both sets): DORMANT
// with zero transactions, otherwise ACTIVE when the most recent transaction
// is on or after the cutoff (now minus lookbackMonths), else INACTIVE.
//
// Any load failure degrades to an empty map; downstream consumers treat
// missing lookups as DORMANT with zero transactions.
func (c *Classifier) LoadStatus(ctx context.Context, lookbackMonths int) map[string]Record {
	if lookbackMonths <= 0 {
		lookbackMonths = DefaultLookbackMons
	}
	cutoff := c.now().AddDate(0, -lookbackMonths, 0)

	materials, err := c.src.Read(ctx, MaterialEntitySet, source.Query{
		Select: []string{MaterialKeyField},
	})
	if err != nil {
		c.logger.Warn("Activity classification degraded: material list unavailable", zap.Error(err))
		return map[string]Record{}
	}

	documents, err := c.src.Read(ctx, DocumentEntitySet, source.Query{
		Select: []string{DocumentKeyField, DocumentDateField},
	})
	if err != nil {
		c.logger.Warn("Activity classification degraded: transaction history unavailable", zap.Error(err))
		return map[string]Record{}
	}

	type history struct {
		count  int
		latest *time.Time
	}
	histories := make(map[string]*history)
	for _, doc := range documents {
		key := doc.String(DocumentKeyField)
		if key == "" {
			continue
		}
		h, ok := histories[key]
		if !ok {
			h = &history{}
			histories[key] = h
		}
		// Unparseable dates still count as transactions; they just cannot
		// advance the most-recent date.
		h.count++
		if t, ok := ParseTransactionDate(doc[DocumentDateField]); ok {
			if h.latest == nil || t.After(*h.latest) {
				latest := t
				h.latest = &latest
			}
		}
	}

	records := make(map[string]Record, len(materials)+len(histories))
	classify := func(key string) {
		if _, done := records[key]; done {
			return
		}
		h, ok := histories[key]
		if !ok || h.count == 0 {
			records[key] = Record{Status: StatusDormant}
			return
		}
		status := StatusInactive
		if h.latest != nil && !h.latest.Before(cutoff) {
			status = StatusActive
		}
		records[key] = Record{
			Status:           status,
			LastTransaction:  h.latest,
			TransactionCount: h.count,
		}
	}

	for _, row := range materials {
		if key := row.String(MaterialKeyField); key != "" {
			classify(key)
		}
	}
	for key := range histories {
		classify(key)
	}

	c.logger.Info("Activity classification loaded",
		zap.Int("materials", len(records)),
		zap.Int("transactions", len(documents)),
		zap.Time("cutoff", cutoff))
	return records
}

// ParseTransactionDate accepts the date forms the gateway emits: native
// time values, ISO date or timestamp strings, and the wrapped millisecond
// form /Date(ms)/.
func ParseTransactionDate(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if m := wrappedMillis.FindStringSubmatch(s); m != nil {
			ms, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			return time.UnixMilli(ms), true
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "20060102"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
