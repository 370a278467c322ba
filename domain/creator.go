package domain

type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutPending    PayoutStatus = "pending"
)

// Payout is one monthly settlement for a creator.
type Payout struct {
	ID           string       `json:"id" yaml:"id"`
	Month        int          `json:"month" yaml:"month"`
	Year         int          `json:"year" yaml:"year"`
	GrossRevenue float64      `json:"gross_revenue" yaml:"gross_revenue"`
	PlatformFee  float64      `json:"platform_fee" yaml:"platform_fee"`
	TaxWithheld  float64      `json:"tax_withheld" yaml:"tax_withheld"`
	NetPayout    float64      `json:"net_payout" yaml:"net_payout"`
	Status       PayoutStatus `json:"status" yaml:"status"`
}

type SalesPoint struct {
	Date    string  `json:"date" yaml:"date"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
	Users   int     `json:"users" yaml:"users"`
}

// BuildEvent is one line of a simulated repository build log.
type BuildEvent struct {
	Seq     int    `json:"seq"`
	Line    string `json:"line"`
	Done    bool   `json:"done"`
	URL     string `json:"url,omitempty"`
	Percent int    `json:"percent"`
}
