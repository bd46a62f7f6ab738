package core

import "spycats/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Breed              = domain.Breed
	SpyCat             = domain.SpyCat
	Country            = domain.Country
	Mission            = domain.Mission
	Target             = domain.Target
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
	RulesEngine        = domain.RulesEngine
	Rule               = domain.Rule
)

const (
	EntityBreed   = domain.EntityBreed
	EntitySpyCat  = domain.EntitySpyCat
	EntityCountry = domain.EntityCountry
	EntityMission = domain.EntityMission
	EntityTarget  = domain.EntityTarget
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
