package core

import (
	"context"
	"fmt"

	"spycats/pkg/domain"
)

// NewCompletionConsistencyRule warns when a mission is flagged complete while
// one of its targets is still open.
func NewCompletionConsistencyRule() domain.Rule {
	return completionConsistencyRule{}
}

type completionConsistencyRule struct{}

func (completionConsistencyRule) Name() string { return "completion_consistency" }

func (r completionConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, missionID := range domain.TouchedMissions(changes) {
		mission, err := view.GetMission(missionID)
		if domain.IsNotFound(err, domain.EntityMission) {
			continue
		}
		if err != nil {
			return domain.Result{}, err
		}
		if !mission.IsComplete || domain.MissionCompleted(mission.Targets) {
			continue
		}
		open := 0
		for _, t := range mission.Targets {
			if !t.IsComplete {
				open++
			}
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("mission %s is complete with %d open targets", missionID, open),
			Entity:   domain.EntityMission,
			EntityID: missionID,
		})
	}
	return res, nil
}
