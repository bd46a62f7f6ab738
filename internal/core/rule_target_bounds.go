package core

import (
	"context"
	"fmt"

	"spycats/pkg/domain"
)

// NewTargetBoundsRule keeps every touched mission within the target count bounds.
func NewTargetBoundsRule() domain.Rule {
	return targetBoundsRule{}
}

type targetBoundsRule struct{}

func (targetBoundsRule) Name() string { return "target_bounds" }

func (r targetBoundsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, missionID := range domain.TouchedMissions(changes) {
		targets, err := view.ListTargets(missionID)
		if domain.IsNotFound(err, domain.EntityMission) {
			continue
		}
		if err != nil {
			return domain.Result{}, err
		}
		n := len(targets)
		if n >= domain.MinTargetsPerMission && n <= domain.MaxTargetsPerMission {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message: fmt.Sprintf("mission %s has %d targets, expected %d-%d",
				missionID, n, domain.MinTargetsPerMission, domain.MaxTargetsPerMission),
			Entity:   domain.EntityMission,
			EntityID: missionID,
		})
	}
	return res, nil
}
