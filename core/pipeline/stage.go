// Package pipeline drives one query through the linear stage machine
// and assembles the final result bundle with its audit log.
package pipeline

import (
	"time"

	"github.com/averix/groundling/model"
)

// State is a position in the strictly linear pipeline state machine.
// There is no branching except into the absorbing FAILED state.
type State string

const (
	StateStart     State = "START"
	StateAnalyzed  State = "ANALYZED"
	StateRetrieved State = "RETRIEVED"
	StateGenerated State = "GENERATED"
	StateScored    State = "SCORED"
	StateGrounded  State = "GROUNDED"
	StateExplained State = "EXPLAINED"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// Stage names as they appear in StageExecutionRecords.
const (
	StageAnalyze  = "analyze"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageScore    = "score"
	StageGround   = "ground"
	StageExplain  = "explain"
)

// run is the mutable state of a single pipeline execution. It is owned
// by exactly one Run call and never shared between queries.
type run struct {
	query  string
	scopes []model.CollectionScope
	opts   model.QueryOptions

	state     State
	profile   *model.QueryProfile
	passages  []*model.RetrievedPassage
	answer    *model.GeneratedAnswer
	breakdown model.ConfidenceBreakdown
	grounding *model.GroundingResult

	explanation string

	started time.Time
	log     []model.StageExecutionRecord
}

// record appends one StageExecutionRecord and advances the state. The
// log is append-only; records are never reordered or touched afterward.
func (r *run) record(next State, rec model.StageExecutionRecord) {
	r.state = next
	r.log = append(r.log, rec)
}
