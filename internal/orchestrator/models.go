package orchestrator

import (
	"time"

	"github.com/aegisshield/readiness-engine/internal/activity"
)

// AvailabilityCat grades how completely the checked data is present.
type AvailabilityCat string

const (
	AvailAvailable AvailabilityCat = "AVAILABLE"
	AvailPartial   AvailabilityCat = "PARTIAL"
	AvailMissing   AvailabilityCat = "MISSING"
)

// Quality grades the validation outcome of the checked data.
type Quality string

const (
	QualityHigh    Quality = "HIGH"
	QualityMedium  Quality = "MEDIUM"
	QualityLow     Quality = "LOW"
	QualityUnknown Quality = "UNKNOWN"
)

// Rule is one configured check: validate one field of one entity set under
// a report grouping label. Rules are read-only input to a run.
type Rule struct {
	EntitySet string `json:"entity_set" mapstructure:"entity_set"`
	Field     string `json:"field" mapstructure:"field"`
	Category  string `json:"category" mapstructure:"category"`
}

// CheckResultLine is one row of the report. The Invalid flag and the
// validation message lists are internal; they are stripped before the line
// reaches the sink.
type CheckResultLine struct {
	Category         string          `json:"category"`
	ObjectID         string          `json:"object_id"`
	ObjectName       string          `json:"object_name"`
	Availability     AvailabilityCat `json:"availability_cat"`
	Quality          Quality         `json:"data_quality"`
	Gap              string          `json:"gap"`
	Recommendation   string          `json:"recommendation"`
	DataSource       string          `json:"data_source"`
	ActivityStatus   activity.Status `json:"activity_status"`
	LastTransaction  *time.Time      `json:"last_transaction"`
	TransactionCount int             `json:"transaction_count"`

	Invalid            bool     `json:"-"`
	ValidationErrors   []string `json:"-"`
	ValidationWarnings []string `json:"-"`
}

// BomNode is one node of an evaluated BOM tree: the root is the header
// material of a BOM number, its children are the components. Node ids are
// unique integers assigned sequentially within one run; the arena owns all
// nodes of the run exclusively.
type BomNode struct {
	NodeID           int             `json:"node_id"`
	ParentNodeID     *int            `json:"parent_node_id"`
	BomNumber        string          `json:"bom_number"`
	MaterialID       string          `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	Availability     AvailabilityCat `json:"availability_cat"`
	Quality          Quality         `json:"data_quality"`
	Gap              string          `json:"gap"`
	Recommendation   string          `json:"recommendation"`
	ActivityStatus   activity.Status `json:"activity_status"`
	LastTransaction  *time.Time      `json:"last_transaction"`
	TransactionCount int             `json:"transaction_count"`
}

// RunResult is what a completed run returns to its caller, alongside the
// submitted report.
type RunResult struct {
	RunID               string            `json:"run_id"`
	ReportID            string            `json:"report_id"`
	DegreeOfFulfillment int               `json:"degree_of_fulfillment"`
	Summary             string            `json:"summary"`
	Status              string            `json:"status"`
	Lines               []CheckResultLine `json:"results"`
	BomNodes            []*BomNode        `json:"bom_results"`
	WarmedSources       int               `json:"warmed_sources"`
	ActivityDegraded    bool              `json:"activity_degraded"`
	StartedAt           time.Time         `json:"started_at"`
	Duration            time.Duration     `json:"duration"`
}
