package models

import "time"

// OddsPick is the best price for one outcome and who quotes it.
type OddsPick struct {
	Odds      float64 `json:"odds"`
	Bookmaker string  `json:"bookmaker"`
}

// BestOdds maps outcome code to the best pick.
type BestOdds map[string]OddsPick

// Opportunity is an arbitrage found on one fixture group. Values are rounded.
type Opportunity struct {
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	Start      time.Time `json:"start"`
	Bookmakers []string  `json:"bookmakers"`
	BestOdds   BestOdds  `json:"best_odds"`

	ArbitragePercentage float64            `json:"arbitrage_percentage"`
	TotalInverse        float64            `json:"total_inverse"`
	TotalStake          float64            `json:"total_stake"`
	StakeDistribution   map[string]float64 `json:"stake_distribution"`
	Profit              float64            `json:"profit"`
	UniqueBookmakers    int                `json:"unique_bookmakers"`
	IsExecutable        bool               `json:"is_executable"`
}

// Name returns "Home vs Away".
func (o Opportunity) Name() string {
	return o.Home + " vs " + o.Away
}

// WebhookPayload is the batch body sent to the notification endpoint.
type WebhookPayload struct {
	Count         int           `json:"count"`
	Opportunities []Opportunity `json:"opportunities"`
}
