package check

import (
	"ip_forest/internal/action"
	"ip_forest/internal/config"
	"ip_forest/internal/dataType"
	"ip_forest/internal/utils"
)

func IPBlockList(reqData dataType.UserRequest, ruleSet *config.RuleSet, decision *action.Decision) {
	if decision.Get() != action.Undecided || ruleSet.BlockSet == "" {
		return
	}
	if ruleSet.Forest.Match(ruleSet.BlockSet, reqData.RemoteIP) {
		utils.LogInfo(reqData, ruleSet.BlockSet, "IPBlockList")
		decision.SetBy(action.Block, ruleSet.BlockSet)
	}
}
