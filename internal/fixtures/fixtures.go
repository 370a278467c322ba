// Package fixtures embeds the demo catalog and account data the marketplace
// boots with.
package fixtures

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fastygo/nexus/domain"
)

//go:embed data.yaml
var raw []byte

type Welcome struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

// Data is the decoded fixture set. Listings are in catalog order, first
// entry on top.
type Data struct {
	DemoUser     domain.User
	Welcome      Welcome
	Listings     []domain.Listing
	Payouts      []domain.Payout
	Sales        []domain.SalesPoint
	Transactions []domain.Transaction
}

type listingFixture struct {
	domain.Listing `yaml:",inline"`
	SampleReviews  int `yaml:"sample_reviews"`
}

type document struct {
	DemoUser     domain.User          `yaml:"demo_user"`
	Welcome      Welcome              `yaml:"welcome"`
	Reviewers    []string             `yaml:"reviewers"`
	ReviewTexts  []string             `yaml:"review_texts"`
	Listings     []listingFixture     `yaml:"listings"`
	Payouts      []domain.Payout      `yaml:"payouts"`
	Sales        []domain.SalesPoint  `yaml:"sales"`
	Transactions []domain.Transaction `yaml:"transactions"`
}

// Load decodes the embedded fixtures. Every call returns fresh copies.
func Load() (*Data, error) {
	return decode(raw)
}

// MustLoad panics if the embedded fixtures are malformed.
func MustLoad() *Data {
	data, err := Load()
	if err != nil {
		panic(err)
	}
	return data
}

func decode(b []byte) (*Data, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if doc.DemoUser.ID == "" {
		return nil, fmt.Errorf("decode fixtures: demo_user.id is empty")
	}

	out := &Data{
		DemoUser:     doc.DemoUser,
		Welcome:      doc.Welcome,
		Payouts:      doc.Payouts,
		Sales:        doc.Sales,
		Transactions: doc.Transactions,
		Listings:     make([]domain.Listing, 0, len(doc.Listings)),
	}
	for i, f := range doc.Listings {
		l := f.Listing
		if l.ID == "" {
			return nil, fmt.Errorf("decode fixtures: listing #%d has no id", i)
		}
		if l.VersionHistory == nil {
			l.VersionHistory = []domain.VersionEntry{}
		}
		l.Reviews = sampleReviews(l.ID, i, f.SampleReviews, doc.Reviewers, doc.ReviewTexts)
		out.Listings = append(out.Listings, l)
	}
	return out, nil
}

// sampleReviews builds a stable set of reviews so the demo catalog renders the
// same on every boot.
func sampleReviews(listingID string, seed, n int, names, texts []string) []domain.Review {
	reviews := make([]domain.Review, 0, n)
	if len(names) == 0 || len(texts) == 0 {
		return reviews
	}
	for i := 0; i < n; i++ {
		name := names[(seed*3+i)%len(names)]
		reviews = append(reviews, domain.Review{
			ID:        fmt.Sprintf("rev_%s_%d", listingID, i+1),
			UserID:    fmt.Sprintf("user_%d", (seed*131+i*17)%1000),
			UserName:  name,
			AvatarURL: fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s%d", name, i),
			Rating:    4 + (seed+i)%2,
			Date:      fmt.Sprintf("2023-10-%02d", 1+(seed*7+i*3)%30),
			Content:   texts[(seed+i*5)%len(texts)],
		})
	}
	return reviews
}
