package types

// Move describes the relocation of one opportunity between stage positions.
type Move struct {
	OpportunityID string
	SourceStageID string
	SourceIndex   int
	DestStageID   string
	DestIndex     int
}

// Board holds the ordered stages of the pipeline and the ordered
// opportunities within each stage.
type Board interface {
	// Stages returns a snapshot of every stage in display order.
	Stages() ([]Stage, error)

	// AddOpportunity places a new opportunity in the stage at index (clamped
	// to the stage bounds). When the opportunity has no ID a UUID v7 is
	// generated. Returns the ID used.
	AddOpportunity(stageID string, index int, o Opportunity) (string, error)

	// GetOpportunity returns the opportunity with its stage and position.
	// Returns ErrOpportunityNotFound if no opportunity has that ID.
	GetOpportunity(id string) (Opportunity, string, int, error)

	// UpdateOpportunity replaces the non-structural fields of an existing
	// opportunity. Stage and position are unchanged; CreatedAt is kept.
	UpdateOpportunity(o Opportunity) error

	// MoveOpportunity relocates one opportunity and returns the resulting
	// stage collection. On error the board is unchanged.
	MoveOpportunity(m Move) ([]Stage, error)
}
