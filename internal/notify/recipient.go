package notify

// Tier is a recipient's subscription level. It controls which content
// variant the composer selects.
type Tier string

const (
	TierBasic  Tier = "basic"
	TierPro    Tier = "pro"
	TierExpert Tier = "expert"
)

// ParseTier normalises a stored plan string. Unknown or missing tiers map
// to basic: a recipient always gets some content, just the most restricted
// variant. "advanced" is a legacy alias for expert.
func ParseTier(plan string) Tier {
	switch plan {
	case "expert", "advanced":
		return TierExpert
	case "pro":
		return TierPro
	default:
		return TierBasic
	}
}

// Recipient is one active notification target for the current cycle.
type Recipient struct {
	ID      string
	Address string
	Tier    Tier
}

// Outcome is the cycle-level dispatch tally.
type Outcome struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
