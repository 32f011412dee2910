package fundamentals

import (
	"fmt"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// DefaultMinConfidence is the confidence gate below which no action is
// taken regardless of stance.
const DefaultMinConfidence = 0.55

// TradeDecision pairs an action with the reason the policy chose it.
type TradeDecision struct {
	Action models.TradeAction
	Reason string
}

// DecideTradeAction is the single stance-to-action policy. It is pure and
// total: every stance/bias/confidence combination yields exactly one
// decision, and unmapped combinations default to HOLD rather than
// failing. The confidence gate short-circuits the table.
func DecideTradeAction(stance models.Stance, bias models.Bias, confidence, minConfidence float64) TradeDecision {
	if confidence < minConfidence {
		return TradeDecision{
			Action: models.ActionHold,
			Reason: fmt.Sprintf("Confidence %.2f < %.2f; avoid acting on weak signal.", confidence, minConfidence),
		}
	}

	switch stance {
	case models.StanceBullish:
		switch bias {
		case models.BiasUpside:
			return TradeDecision{
				Action: models.ActionAvoidCalls,
				Reason: "Bullish + UPSIDE: avoid capping upside with covered calls.",
			}
		case models.BiasIncome:
			return TradeDecision{
				Action: models.ActionSellCallMoreOTM,
				Reason: "Bullish + INCOME: if writing calls, prefer more OTM strikes to preserve upside.",
			}
		default:
			return TradeDecision{
				Action: models.ActionSellCallMoreOTM,
				Reason: "Bullish with caution: write calls only if needed; prefer more OTM.",
			}
		}

	case models.StanceNeutral:
		switch bias {
		case models.BiasIncome:
			return TradeDecision{
				Action: models.ActionSellCall,
				Reason: "Neutral + INCOME: baseline covered call posture.",
			}
		case models.BiasUpside:
			return TradeDecision{
				Action: models.ActionHold,
				Reason: "Neutral + UPSIDE: wait rather than cap upside without strong conviction.",
			}
		default:
			return TradeDecision{
				Action: models.ActionHold,
				Reason: "Neutral + CAUTION: default to waiting.",
			}
		}

	case models.StanceBearish:
		switch bias {
		case models.BiasIncome:
			return TradeDecision{
				Action: models.ActionSellCall,
				Reason: "Bearish + INCOME: covered calls can reduce basis; prefer closer-to-money if desired (execution layer).",
			}
		case models.BiasCaution:
			return TradeDecision{
				Action: models.ActionCloseOrRoll,
				Reason: "Bearish + CAUTION: reduce risk; if short calls exist, consider roll/close; otherwise avoid new calls.",
			}
		default:
			return TradeDecision{
				Action: models.ActionAvoidCalls,
				Reason: "Bearish + UPSIDE mismatch: avoid new calls; signal conflict.",
			}
		}
	}

	// Never crash if new enum values appear.
	return TradeDecision{
		Action: models.ActionHold,
		Reason: fmt.Sprintf("Unhandled stance/bias combination (stance=%s, bias=%s); default HOLD.", stance, bias),
	}
}
