package domain

type Tier struct {
	Name  string `json:"name"`
	Rank  int    `json:"rank"`
	Color string `json:"color"`
}

var (
	TierBronze    = Tier{Name: "Bronze", Rank: 1, Color: "#CD7F32"}
	TierSilver    = Tier{Name: "Silver", Rank: 2, Color: "#C0C0C0"}
	TierGold      = Tier{Name: "Gold", Rank: 3, Color: "#FFD700"}
	TierLegendary = Tier{Name: "Legendary", Rank: 4, Color: "#FF1493"}
)

func TierFor(clicks int64) Tier {
	switch {
	case clicks < 1000:
		return TierBronze
	case clicks < 10000:
		return TierSilver
	case clicks < 100000:
		return TierGold
	default:
		return TierLegendary
	}
}

// TierGap is the absolute rank distance between two balances.
func TierGap(a, b int64) int {
	d := TierFor(a).Rank - TierFor(b).Rank
	if d < 0 {
		return -d
	}
	return d
}
