// Package listing turns selected candidates into draft listing copy.
// The copy itself is deliberately mechanical template text; a richer
// generator can be swapped in behind the Generator interface.
package listing

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/model"
)

// Amazon listing limits.
const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxBullets        = 5
	maxSearchTerms    = 20
)

// Generator produces a listing template for a candidate and the
// sourcing option chosen for it.
type Generator interface {
	Generate(candidate model.Candidate, option model.SourcingOption) model.ListingTemplate
}

// TemplateGenerator builds listing copy from the candidate's own data.
// Brandable options get branded copy under BrandName; the rest reuse
// the observed product text.
type TemplateGenerator struct {
	BrandName string
}

// NewTemplateGenerator returns a generator branding copy as brandName.
func NewTemplateGenerator(brandName string) *TemplateGenerator {
	return &TemplateGenerator{BrandName: brandName}
}

func (g *TemplateGenerator) Generate(candidate model.Candidate, option model.SourcingOption) model.ListingTemplate {
	var tpl model.ListingTemplate
	if option.Brandable {
		tpl = g.brandable(candidate)
	} else {
		tpl = g.nonBrandable(candidate)
	}
	tpl.CandidateID = candidate.ID

	zap.L().Debug("listing: template generated",
		zap.String("asin", candidate.ASIN),
		zap.Bool("brandable", tpl.Brandable),
	)
	return tpl
}

func (g *TemplateGenerator) brandable(candidate model.Candidate) model.ListingTemplate {
	base := candidate.Title
	if base == "" {
		base = "Premium Product"
	}

	// Brand name first, then the leading words of the observed title.
	words := strings.Fields(base)
	if len(words) > 8 {
		words = words[:8]
	}
	title := truncate(g.BrandName+" "+strings.Join(words, " "), maxTitleLen)

	bullets := []string{
		fmt.Sprintf("%s brand - premium quality guaranteed", g.BrandName),
	}
	if len(words) > 0 {
		bullets = append(bullets, fmt.Sprintf("Professional-grade %s", strings.ToLower(words[0])))
	} else {
		bullets = append(bullets, "Professional, carefully finished design")
	}
	if candidate.Category != "" {
		bullets = append(bullets, fmt.Sprintf("Ideal for %s", strings.ToLower(candidate.Category)))
	} else {
		bullets = append(bullets, "Ideal for everyday use")
	}
	bullets = append(bullets,
		"Customer satisfaction guarantee with responsive support",
		"Fast and secure delivery",
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Introducing %s\n\n%s\n\n", g.BrandName, base)
	b.WriteString("Key features:\n")
	b.WriteString("- Premium quality materials\n")
	b.WriteString("- Modern, functional design\n")
	b.WriteString("- Quality tested and validated\n\n")
	b.WriteString("We stand behind our products; our support team is here to help.")
	if candidate.Category != "" {
		fmt.Fprintf(&b, "\n\nCategory: %s", candidate.Category)
	}

	terms := []string{strings.ToLower(g.BrandName)}
	terms = append(terms, titleTerms(candidate, 8)...)
	terms = append(terms, "quality", "premium", "professional")

	return model.ListingTemplate{
		Title:        title,
		BulletPoints: clampBullets(bullets),
		Description:  truncate(b.String(), maxDescriptionLen),
		SearchTerms:  joinTerms(terms),
		Brandable:    true,
		BrandName:    g.BrandName,
	}
}

func (g *TemplateGenerator) nonBrandable(candidate model.Candidate) model.ListingTemplate {
	title := candidate.Title
	if title == "" {
		title = "Product " + candidate.ASIN
	}
	title = truncate(title, maxTitleLen)

	var bullets []string
	if candidate.Title != "" {
		words := strings.Fields(candidate.Title)
		if len(words) > 5 {
			words = words[:5]
		}
		bullets = append(bullets, strings.Join(words, " ")+" - professional quality")
	} else {
		bullets = append(bullets, "Professional quality product")
	}
	if candidate.Category != "" {
		bullets = append(bullets, "Category: "+candidate.Category)
	}
	if candidate.Rating != nil {
		bullets = append(bullets, fmt.Sprintf("Average rating: %.1f/5 stars", *candidate.Rating))
	}
	if candidate.ReviewsCount != nil {
		bullets = append(bullets, fmt.Sprintf("%d customer reviews", *candidate.ReviewsCount))
	}
	bullets = append(bullets, "Fast and secure delivery")

	var b strings.Builder
	b.WriteString(title)
	if candidate.Category != "" {
		fmt.Fprintf(&b, "\n\nCategory: %s", candidate.Category)
	}
	b.WriteString("\n\nQuality product, delivered quickly and safely.")

	return model.ListingTemplate{
		Title:        title,
		BulletPoints: clampBullets(bullets),
		Description:  truncate(b.String(), maxDescriptionLen),
		SearchTerms:  joinTerms(titleTerms(candidate, 10)),
		Brandable:    false,
	}
}

func titleTerms(candidate model.Candidate, maxFromTitle int) []string {
	var terms []string
	for _, w := range strings.Fields(candidate.Title) {
		if len(w) > 3 {
			terms = append(terms, strings.ToLower(w))
		}
		if len(terms) == maxFromTitle {
			break
		}
	}
	if candidate.Category != "" {
		terms = append(terms, strings.ToLower(candidate.Category))
	}
	return terms
}

func joinTerms(terms []string) string {
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}
	return strings.Join(terms, " ")
}

func clampBullets(bullets []string) []string {
	if len(bullets) > maxBullets {
		return bullets[:maxBullets]
	}
	return bullets
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
