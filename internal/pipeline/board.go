package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Board is an in-memory types.Board. It is safe for concurrent use.
type Board struct {
	mu     sync.RWMutex
	stages []types.Stage
	now    func() time.Time
	log    logrus.FieldLogger
}

// Option configures a Board.
type Option func(*Board)

// WithClock sets the time source used for CreatedAt defaults.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithLogger sets the logger used to report board changes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Board) { b.log = log }
}

// NewBoard creates a board holding a copy of stages. Opportunity IDs must be
// unique across stages.
func NewBoard(stages []types.Stage, opts ...Option) (*Board, error) {
	b := &Board{now: time.Now, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(b)
	}
	seen := make(map[string]bool)
	for _, s := range stages {
		for _, o := range s.Opportunities {
			if seen[o.OpportunityID] {
				return nil, fmt.Errorf("%q: %w", o.OpportunityID, types.ErrDuplicateID)
			}
			seen[o.OpportunityID] = true
		}
		b.stages = append(b.stages, s.Clone())
	}
	return b, nil
}

// Stages returns a snapshot of every stage in display order.
func (b *Board) Stages() ([]types.Stage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneStages(b.stages), nil
}

// AddOpportunity places o in the stage at index and returns its ID.
func (b *Board) AddOpportunity(stageID string, index int, o types.Opportunity) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if o.OpportunityID == "" {
		o.OpportunityID = types.NewID()
	} else if si, _ := Find(b.stages, o.OpportunityID); si >= 0 {
		return "", fmt.Errorf("%q: %w", o.OpportunityID, types.ErrDuplicateID)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = b.now()
	}

	next, err := Insert(b.stages, stageID, index, o.Clone())
	if err != nil {
		return "", err
	}
	b.stages = next
	b.log.WithFields(logrus.Fields{"opportunity": o.OpportunityID, "stage": stageID}).Debug("opportunity added")
	return o.OpportunityID, nil
}

// GetOpportunity returns the opportunity with its stage ID and position.
func (b *Board) GetOpportunity(id string) (types.Opportunity, string, int, error) {
	if id == "" {
		return types.Opportunity{}, "", -1, types.ErrInvalidID
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	si, oi := Find(b.stages, id)
	if si < 0 {
		return types.Opportunity{}, "", -1, fmt.Errorf("%q: %w", id, types.ErrOpportunityNotFound)
	}
	return b.stages[si].Opportunities[oi].Clone(), b.stages[si].StageID, oi, nil
}

// UpdateOpportunity replaces the editable fields of an existing opportunity.
func (b *Board) UpdateOpportunity(o types.Opportunity) error {
	if o.OpportunityID == "" {
		return types.ErrInvalidID
	}
	if err := o.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	si, oi := Find(b.stages, o.OpportunityID)
	if si < 0 {
		return fmt.Errorf("%q: %w", o.OpportunityID, types.ErrOpportunityNotFound)
	}
	o.CreatedAt = b.stages[si].Opportunities[oi].CreatedAt

	opps := make([]types.Opportunity, len(b.stages[si].Opportunities))
	copy(opps, b.stages[si].Opportunities)
	opps[oi] = o.Clone()
	next := make([]types.Stage, len(b.stages))
	copy(next, b.stages)
	next[si].Opportunities = opps
	b.stages = next
	return nil
}

// MoveOpportunity relocates one opportunity. See Apply for the semantics.
func (b *Board) MoveOpportunity(m types.Move) ([]types.Stage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := Apply(b.stages, m)
	if err != nil {
		return nil, err
	}
	b.stages = next
	b.log.WithFields(logrus.Fields{
		"opportunity": m.OpportunityID,
		"from":        m.SourceStageID,
		"to":          m.DestStageID,
		"index":       m.DestIndex,
	}).Debug("opportunity moved")
	return cloneStages(next), nil
}

func cloneStages(stages []types.Stage) []types.Stage {
	out := make([]types.Stage, len(stages))
	for i, s := range stages {
		out[i] = s.Clone()
	}
	return out
}
