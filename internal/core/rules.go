package core

import "spycats/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewSingleActiveMissionRule())
	engine.Register(NewTargetBoundsRule())
	engine.Register(NewCompletionConsistencyRule())
	return engine
}
