package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type PricingModel string

const (
	PricingFree         PricingModel = "free"
	PricingOneTime      PricingModel = "one_time"
	PricingSubscription PricingModel = "subscription"
)

type ListingStatus string

const (
	StatusDraft       ListingStatus = "draft"
	StatusUnderReview ListingStatus = "under_review"
	StatusPublished   ListingStatus = "published"
	StatusRejected    ListingStatus = "rejected"
)

type DeploymentKind string

const (
	DeploymentWebApp   DeploymentKind = "web_app"
	DeploymentNotebook DeploymentKind = "notebook"
	DeploymentAPI      DeploymentKind = "rest_api"
	DeploymentSandbox  DeploymentKind = "internal_sandbox"
)

// TrialEligible reports whether the kind can run inside the product.
func (k DeploymentKind) TrialEligible() bool {
	return k == DeploymentWebApp || k == DeploymentSandbox
}

// Deployment describes where a listing runs.
type Deployment struct {
	Kind         DeploymentKind `json:"kind" yaml:"kind" validate:"required,oneof=web_app notebook rest_api internal_sandbox"`
	URL          string         `json:"url" yaml:"url" validate:"required,deployurl"`
	APIEndpoint  string         `json:"api_endpoint,omitempty" yaml:"api_endpoint,omitempty"`
	DocsURL      string         `json:"docs_url,omitempty" yaml:"docs_url,omitempty" validate:"omitempty,url"`
	APIKeyHeader string         `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`
	RepoURL      string         `json:"repo_url,omitempty" yaml:"repo_url,omitempty" validate:"omitempty,url"`
}

type Review struct {
	ID        string `json:"id" yaml:"id"`
	UserID    string `json:"user_id" yaml:"user_id"`
	UserName  string `json:"user_name" yaml:"user_name"`
	AvatarURL string `json:"avatar_url" yaml:"avatar_url"`
	Rating    int    `json:"rating" yaml:"rating"`
	Date      string `json:"date" yaml:"date"`
	Content   string `json:"content" yaml:"content"`
}

type VersionEntry struct {
	Version string   `json:"version" yaml:"version"`
	Date    string   `json:"date" yaml:"date"`
	Changes []string `json:"changes" yaml:"changes"`
}

// Listing is a marketplace entry for one AI tool.
type Listing struct {
	ID                   string         `json:"id" yaml:"id"`
	OwnerID              string         `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Title                string         `json:"title" yaml:"title"`
	ShortDescription     string         `json:"short_description" yaml:"short_description"`
	FullDescription      string         `json:"full_description" yaml:"full_description"`
	Features             []string       `json:"features" yaml:"features"`
	IconURL              string         `json:"icon_url" yaml:"icon_url"`
	CoverImageURL        string         `json:"cover_image_url,omitempty" yaml:"cover_image_url,omitempty"`
	Screenshots          []string       `json:"screenshots" yaml:"screenshots"`
	VideoURL             string         `json:"video_url,omitempty" yaml:"video_url,omitempty"`
	Deployment           Deployment     `json:"deployment" yaml:"deployment"`
	ToolsUsed            []string       `json:"tools_used" yaml:"tools_used"`
	AuthorName           string         `json:"author_name" yaml:"author_name"`
	Rating               float64        `json:"rating" yaml:"rating"`
	ReviewCount          int            `json:"review_count" yaml:"review_count"`
	Reviews              []Review       `json:"reviews" yaml:"reviews"`
	Downloads            int            `json:"downloads" yaml:"downloads"`
	PricingModel         PricingModel   `json:"pricing_model" yaml:"pricing_model"`
	Price                float64        `json:"price" yaml:"price"`
	Category             string         `json:"category" yaml:"category"`
	Tags                 []string       `json:"tags" yaml:"tags"`
	ReleaseDate          string         `json:"release_date" yaml:"release_date"`
	Status               ListingStatus  `json:"status" yaml:"status"`
	CurrentVersion       string         `json:"current_version" yaml:"current_version"`
	VersionHistory       []VersionEntry `json:"version_history" yaml:"version_history"`
	RecommendationReason string         `json:"recommendation_reason,omitempty" yaml:"recommendation_reason,omitempty"`
	HelpDocs             string         `json:"help_docs,omitempty" yaml:"help_docs,omitempty"`
	CreatedAt            time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt            time.Time      `json:"updated_at" yaml:"-"`
}

func (l *Listing) IsPublished() bool {
	return l != nil && l.Status == StatusPublished
}

// Popularity is the leaderboard score.
func (l *Listing) Popularity() float64 {
	if l == nil {
		return 0
	}
	return float64(l.Downloads) * l.Rating
}

func (l *Listing) Touch(now time.Time) {
	if l == nil {
		return
	}
	l.UpdatedAt = now
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := *l
	out.Features = cloneStrings(l.Features)
	out.Screenshots = cloneStrings(l.Screenshots)
	out.ToolsUsed = cloneStrings(l.ToolsUsed)
	out.Tags = cloneStrings(l.Tags)
	if l.Reviews != nil {
		out.Reviews = append([]Review(nil), l.Reviews...)
	}
	if l.VersionHistory != nil {
		out.VersionHistory = make([]VersionEntry, len(l.VersionHistory))
		for i, entry := range l.VersionHistory {
			entry.Changes = cloneStrings(entry.Changes)
			out.VersionHistory[i] = entry
		}
	}
	return &out
}

// Approve moves a listing under review to published. When released is set,
// a history entry for the current version is prepended; otherwise the history
// is reset. It returns false if the listing was not under review.
func (l *Listing) Approve(released bool, date string, changes ...string) bool {
	if l == nil || l.Status != StatusUnderReview {
		return false
	}
	l.Status = StatusPublished
	if !released {
		l.VersionHistory = []VersionEntry{}
		return true
	}
	entry := VersionEntry{Version: l.CurrentVersion, Date: date, Changes: cloneStrings(changes)}
	l.VersionHistory = append([]VersionEntry{entry}, l.VersionHistory...)
	return true
}

// NextVersion bumps the minor component: "2.1.0" -> "2.2.0", "2.9.1" -> "3.0.0".
// Unparseable versions restart at "1.0.0".
func NextVersion(current string) string {
	parts := strings.SplitN(current, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return "1.0.0"
	}
	minor := 0
	if len(parts) > 1 {
		digits := strings.TrimRightFunc(parts[1], func(r rune) bool { return r < '0' || r > '9' })
		if digits != "" {
			if minor, err = strconv.Atoi(digits); err != nil {
				return "1.0.0"
			}
		}
	}
	minor++
	if minor == 10 {
		major++
		minor = 0
	}
	return fmt.Sprintf("%d.%d.0", major, minor)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// ListingCopy is generated marketing text for a listing draft.
type ListingCopy struct {
	Description string   `json:"description"`
	Features    []string `json:"features"`
}
