package gates

// Rule ids recorded in GateDetails.Rules. Decision reasons are ranked by these.
const (
	RuleDXY5d           = "macro.dxy_5d_change"
	RuleDXYUpDays       = "macro.dxy_up_closes"
	RuleUS2YWeekly      = "macro.us2y_weekly"
	RuleFCIUp           = "macro.fci_up_weeks"
	RuleForceC          = "macro.force_c"
	RuleLiquidityRed    = "liquidity.red"
	RuleLiquidityWarn   = "liquidity.warn"
	RuleRiskOn          = "riskon.on"
	RuleLiquidationHalf = "leverage.liquidation_half"
	RuleCrowdingThird   = "leverage.crowding_third"
	RuleBubble          = "supply.bubble_warning"
	RuleFiveDayRed      = "etf.five_day_red"
	RuleBreakout        = "etf.breakout_validated"
	RuleTripleHit       = "danger.triple_hit"
	RuleSVCUp           = "svc.cap_up"
	RuleSVCDown         = "svc.cap_down"
	RuleBCMConflict     = "bcm.conflict"
	RulePhaseUpMid      = "phase.up_mid"
	RulePhaseLateDiv    = "phase.late_div"
	RulePhaseReversal   = "phase.reversal_signal"
	RuleBEPass          = "be.pass"
	RuleTriAllow        = "tri.allow"
	RuleATAFTight       = "ataf.tight"
	RuleATAFLoose       = "ataf.loose"
	RuleDistribution    = "distribution.distribution"
	RuleAccumulation    = "distribution.accumulation"
)

// Phase labels
const (
	PhaseUpMid   = "Up-Mid"
	PhaseBTDBTR  = "BTD→BTR"
	PhaseLateDiv = "Late-Div"
)

// ATAF bias labels
const (
	BiasTight   = "tight"
	BiasLoose   = "loose"
	BiasNeutral = "neutral"
)
