package check

import (
	"ip_forest/internal/action"
	"ip_forest/internal/config"
	"ip_forest/internal/dataType"
	"ip_forest/internal/utils"
)

func IPAllowList(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision) {
	if decision.Get() != action.Undecided || ruleSet.AllowSet == "" {
		return
	}
	if ruleSet.Forest.Match(ruleSet.AllowSet, reqData.RemoteIP) {
		utils.LogDebug(reqData, ruleSet.AllowSet, "IPAllowList")
		decision.SetBy(action.Allow, ruleSet.AllowSet)
	}
}
