package catalog

import (
	"strings"

	"github.com/fastygo/nexus/domain"
)

// Draft is the creator-editable part of a listing.
type Draft struct {
	Title            string              `json:"title" validate:"required,max=120"`
	ShortDescription string              `json:"short_description" validate:"max=280"`
	FullDescription  string              `json:"full_description"`
	Features         []string            `json:"features" validate:"max=12,dive,required"`
	IconURL          string              `json:"icon_url" validate:"omitempty,url"`
	CoverImageURL    string              `json:"cover_image_url" validate:"omitempty,url"`
	Screenshots      []string            `json:"screenshots" validate:"dive,url"`
	VideoURL         string              `json:"video_url" validate:"omitempty,url"`
	Deployment       domain.Deployment   `json:"deployment"`
	ToolsUsed        []string            `json:"tools_used"`
	PricingModel     domain.PricingModel `json:"pricing_model" validate:"required,oneof=free one_time subscription"`
	Price            float64             `json:"price" validate:"gte=0"`
	Category         string              `json:"category" validate:"required"`
	Tags             []string            `json:"tags"`
	HelpDocs         string              `json:"help_docs"`
	// BumpVersion advances the minor version on update.
	BumpVersion bool `json:"bump_version"`
}

func (d *Draft) normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Category = strings.TrimSpace(d.Category)
	d.Deployment.URL = strings.TrimSpace(d.Deployment.URL)
	if d.PricingModel == domain.PricingFree {
		d.Price = 0
	}
	d.Features = compact(d.Features)
	d.Tags = compact(d.Tags)
	d.ToolsUsed = compact(d.ToolsUsed)
}

// apply copies the editable fields onto l.
func (d *Draft) apply(l *domain.Listing) {
	l.Title = d.Title
	l.ShortDescription = d.ShortDescription
	l.FullDescription = d.FullDescription
	l.Features = append([]string{}, d.Features...)
	l.IconURL = d.IconURL
	l.CoverImageURL = d.CoverImageURL
	l.Screenshots = append([]string{}, d.Screenshots...)
	l.VideoURL = d.VideoURL
	l.Deployment = d.Deployment
	l.ToolsUsed = append([]string{}, d.ToolsUsed...)
	l.PricingModel = d.PricingModel
	l.Price = domain.RoundMoney(d.Price)
	l.Category = d.Category
	l.Tags = append([]string{}, d.Tags...)
	l.HelpDocs = d.HelpDocs
}

// DraftFrom turns an existing listing back into an editable draft.
func DraftFrom(l *domain.Listing) Draft {
	return Draft{
		Title:            l.Title,
		ShortDescription: l.ShortDescription,
		FullDescription:  l.FullDescription,
		Features:         append([]string{}, l.Features...),
		IconURL:          l.IconURL,
		CoverImageURL:    l.CoverImageURL,
		Screenshots:      append([]string{}, l.Screenshots...),
		VideoURL:         l.VideoURL,
		Deployment:       l.Deployment,
		ToolsUsed:        append([]string{}, l.ToolsUsed...),
		PricingModel:     l.PricingModel,
		Price:            l.Price,
		Category:         l.Category,
		Tags:             append([]string{}, l.Tags...),
		HelpDocs:         l.HelpDocs,
	}
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
