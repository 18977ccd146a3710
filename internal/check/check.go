package check

import (
	"ip_forest/internal/action"
	"ip_forest/internal/config"
	"ip_forest/internal/dataType"
)

type CheckFunc func(dataType.UserRequest, *config.RuleSet, *action.Decision)

// DefaultChecks run in order; the first one to decide wins.
var DefaultChecks = []CheckFunc{
	IPAllowList,
	IPBlockList,
}

// Run evaluates checks and allows whatever stays undecided.
func Run(reqData dataType.UserRequest, ruleSet *config.RuleSet, checks []CheckFunc) *action.Decision {
	decision := action.NewDecision()
	for _, checkFunc := range checks {
		checkFunc(reqData, ruleSet, decision)
		if decision.Get() != action.Undecided {
			break
		}
	}
	if decision.Get() == action.Undecided {
		decision.Set(action.Allow)
	}
	return decision
}
