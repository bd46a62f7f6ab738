package core

import (
	"context"
	"fmt"

	"spycats/pkg/domain"
)

// NewSingleActiveMissionRule blocks commits that leave a cat assigned to more
// than one incomplete mission.
func NewSingleActiveMissionRule() domain.Rule {
	return singleActiveMissionRule{}
}

type singleActiveMissionRule struct{}

func (singleActiveMissionRule) Name() string { return "single_active_mission" }

func (r singleActiveMissionRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	seen := make(map[string]struct{})
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityMission || change.Action == domain.ActionDelete {
			continue
		}
		mission, ok := change.After.(domain.Mission)
		if !ok || !mission.HasCat() || mission.IsComplete {
			continue
		}
		catID := *mission.CatID
		if _, done := seen[catID]; done {
			continue
		}
		seen[catID] = struct{}{}
		active, err := view.ActiveMissionsForCat(catID)
		if err != nil {
			return domain.Result{}, err
		}
		if len(active) > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("cat %s is assigned to %d active missions", catID, len(active)),
				Entity:   domain.EntitySpyCat,
				EntityID: catID,
			})
		}
	}
	return res, nil
}
