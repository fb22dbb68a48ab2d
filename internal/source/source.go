// Package source defines the contracts to the outside world: an abstract
// record source the checks read master data from, and a report sink the
// finished compliance report is handed to.
package source

import (
	"context"
	"errors"
)

// ErrNotFound distinguishes "the entity set or entity does not exist" from
// transport failures. Callers translate it into MISSING check results
// instead of aborting.
var ErrNotFound = errors.New("entity set not found")

// Row is one record returned by a record source.
type Row map[string]interface{}

// String returns the row value under key rendered as a string, or "" when
// absent.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Filter restricts a read to rows whose field equals one of the values.
// It is deliberately structural so each adapter renders it in its own
// query language instead of passing raw query text around. The zero value
// restricts nothing.
type Filter struct {
	Field  string
	Values []string
}

// Empty reports whether the filter restricts anything.
func (f Filter) Empty() bool {
	return f.Field == "" || len(f.Values) == 0
}

// Query narrows a record source read.
type Query struct {
	Select  []string
	Filter  Filter
	Expand  []string
	OrderBy string
	Top     int
}

// RecordSource reads rows of a named entity set.
type RecordSource interface {
	Read(ctx context.Context, entitySet string, query Query) ([]Row, error)
}

// ResultLine is one row of the final report, stripped to the fields the
// sink accepts.
type ResultLine struct {
	Category         string `json:"category"`
	ObjectID         string `json:"object_id"`
	ObjectName       string `json:"object_name"`
	AvailabilityCat  string `json:"availability_cat"`
	DataQuality      string `json:"data_quality"`
	Gap              string `json:"gap"`
	Recommendation   string `json:"recommendation"`
	DataSource       string `json:"data_source"`
	ActivityStatus   string `json:"activity_status"`
	LastTransaction  string `json:"last_transaction,omitempty"`
	TransactionCount int    `json:"transaction_count"`
}

// BomResultLine is one flattened BOM tree node of the final report.
type BomResultLine struct {
	NodeID           int    `json:"node_id"`
	ParentNodeID     *int   `json:"parent_node_id"`
	BomNumber        string `json:"bom_number"`
	ObjectID         string `json:"object_id"`
	ObjectName       string `json:"object_name"`
	AvailabilityCat  string `json:"availability_cat"`
	DataQuality      string `json:"data_quality"`
	Gap              string `json:"gap"`
	Recommendation   string `json:"recommendation"`
	ActivityStatus   string `json:"activity_status"`
	LastTransaction  string `json:"last_transaction,omitempty"`
	TransactionCount int    `json:"transaction_count"`
}

// ReportPayload is the complete report handed to the sink.
type ReportPayload struct {
	RegulationRef       string          `json:"regulation_ref"`
	RunTimestamp        string          `json:"run_timestamp"`
	DegreeOfFulfillment int             `json:"degree_of_fulfillment"`
	Summary             string          `json:"summary"`
	Status              string          `json:"status"`
	Results             []ResultLine    `json:"results"`
	BomResults          []BomResultLine `json:"bom_results"`
}

// ReportSink accepts a finished report and returns its identifier. A sink
// failure is the one fatal condition of a check run.
type ReportSink interface {
	Create(ctx context.Context, payload ReportPayload) (string, error)
}
