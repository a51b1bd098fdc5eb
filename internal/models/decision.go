package models

// DecisionLabel is the trading action recommended for a card.
type DecisionLabel string

const (
	LabelSell DecisionLabel = "SELL"
	LabelHold DecisionLabel = "HOLD"
)

// OwnershipMode selects the decision policy. Bought cards have a known
// acquisition price; pulled cards (opened from packs) do not.
type OwnershipMode string

const (
	ModeBought OwnershipMode = "bought"
	ModePulled OwnershipMode = "pulled"
)

// Decision is the engine's output for one feature vector.
type Decision struct {
	Label  DecisionLabel `json:"label"`
	Reason string        `json:"reason"`
	Mode   OwnershipMode `json:"mode"`
}
