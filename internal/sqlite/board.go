package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/internal/pipeline"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// board implements types.Board over the stages and opportunities tables.
// Mutations run the pipeline rules over a snapshot and write the touched
// stages back in one transaction.
type board struct {
	backend *Backend
}

func (bd *board) Stages() ([]types.Stage, error) {
	b := bd.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return loadStages(b.db)
}

func (bd *board) AddOpportunity(stageID string, index int, o types.Opportunity) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	b := bd.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	stages, err := loadStages(b.db)
	if err != nil {
		return "", err
	}
	if o.OpportunityID == "" {
		o.OpportunityID = types.NewID()
	} else if si, _ := pipeline.Find(stages, o.OpportunityID); si >= 0 {
		return "", fmt.Errorf("%q: %w", o.OpportunityID, types.ErrDuplicateID)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	next, err := pipeline.Insert(stages, stageID, index, o)
	if err != nil {
		return "", err
	}
	if err := bd.write(next, stageID); err != nil {
		return "", err
	}
	b.log.WithFields(logrus.Fields{"opportunity": o.OpportunityID, "stage": stageID}).Debug("opportunity added")
	return o.OpportunityID, nil
}

func (bd *board) GetOpportunity(id string) (types.Opportunity, string, int, error) {
	if id == "" {
		return types.Opportunity{}, "", -1, types.ErrInvalidID
	}
	b := bd.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Opportunity{}, "", -1, types.ErrStoreDetached
	}

	row := b.db.QueryRow("SELECT "+opportunityColumns+" FROM opportunities WHERE opportunity_id = ?", id)
	o, stageID, pos, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Opportunity{}, "", -1, fmt.Errorf("%q: %w", id, types.ErrOpportunityNotFound)
	}
	if err != nil {
		return types.Opportunity{}, "", -1, fmt.Errorf("reading opportunity: %w", err)
	}
	return o, stageID, pos, nil
}

func (bd *board) UpdateOpportunity(o types.Opportunity) error {
	if o.OpportunityID == "" {
		return types.ErrInvalidID
	}
	if err := o.Validate(); err != nil {
		return err
	}
	b := bd.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	stages, err := loadStages(b.db)
	if err != nil {
		return err
	}
	si, oi := pipeline.Find(stages, o.OpportunityID)
	if si < 0 {
		return fmt.Errorf("%q: %w", o.OpportunityID, types.ErrOpportunityNotFound)
	}
	o.CreatedAt = stages[si].Opportunities[oi].CreatedAt
	stages[si].Opportunities[oi] = o
	return bd.write(stages, stages[si].StageID)
}

func (bd *board) MoveOpportunity(m types.Move) ([]types.Stage, error) {
	b := bd.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	stages, err := loadStages(b.db)
	if err != nil {
		return nil, err
	}
	next, err := pipeline.Apply(stages, m)
	if err != nil {
		return nil, err
	}
	if err := bd.write(next, m.SourceStageID, m.DestStageID); err != nil {
		return nil, err
	}
	b.log.WithFields(logrus.Fields{
		"opportunity": m.OpportunityID,
		"from":        m.SourceStageID,
		"to":          m.DestStageID,
		"index":       m.DestIndex,
	}).Debug("opportunity moved")
	return next, nil
}

// write saves the named stages of stages and rewrites opportunities.jsonl
// in one transaction. The caller must hold the backend write lock.
func (bd *board) write(stages []types.Stage, stageIDs ...string) error {
	return bd.backend.mutate(func(tx *sql.Tx) error {
		done := make(map[string]bool, len(stageIDs))
		for _, s := range stages {
			for _, id := range stageIDs {
				if s.StageID == id && !done[id] {
					if err := saveStage(tx, s); err != nil {
						return err
					}
					done[id] = true
				}
			}
		}
		return nil
	}, opportunitiesFile)
}
