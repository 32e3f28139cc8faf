package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margincraft/resale-cli/internal/model"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestGenerateBrandable(t *testing.T) {
	g := NewTemplateGenerator("NORDIK")
	candidate := model.Candidate{
		ID:       "cand-1",
		ASIN:     "B00BRAND1",
		Title:    "Silicone Baking Mat Set of 3 Non-Stick Reusable",
		Category: "Home & Kitchen",
	}

	tpl := g.Generate(candidate, model.SourcingOption{Brandable: true})

	assert.Equal(t, "cand-1", tpl.CandidateID)
	assert.True(t, tpl.Brandable)
	assert.Equal(t, "NORDIK", tpl.BrandName)
	assert.True(t, strings.HasPrefix(tpl.Title, "NORDIK "))
	assert.LessOrEqual(t, len(tpl.Title), 200)
	require.NotEmpty(t, tpl.BulletPoints)
	assert.LessOrEqual(t, len(tpl.BulletPoints), 5)
	assert.Contains(t, tpl.BulletPoints[0], "NORDIK")
	assert.Contains(t, tpl.Description, "Home & Kitchen")
	assert.Contains(t, tpl.SearchTerms, "nordik")
	assert.Contains(t, tpl.SearchTerms, "silicone")
}

func TestGenerateNonBrandable(t *testing.T) {
	g := NewTemplateGenerator("NORDIK")
	candidate := model.Candidate{
		ID:           "cand-2",
		ASIN:         "B00PLAIN1",
		Title:        "Stainless Steel Garlic Press",
		Category:     "Home & Kitchen",
		Rating:       fptr(4.3),
		ReviewsCount: iptr(812),
	}

	tpl := g.Generate(candidate, model.SourcingOption{Brandable: false})

	assert.False(t, tpl.Brandable)
	assert.Empty(t, tpl.BrandName)
	assert.Equal(t, "Stainless Steel Garlic Press", tpl.Title)
	assert.Contains(t, strings.Join(tpl.BulletPoints, "\n"), "4.3/5")
	assert.Contains(t, strings.Join(tpl.BulletPoints, "\n"), "812 customer reviews")
	assert.NotContains(t, tpl.SearchTerms, "nordik")
}

func TestGenerateWithoutTitle(t *testing.T) {
	g := NewTemplateGenerator("NORDIK")
	candidate := model.Candidate{ID: "cand-3", ASIN: "B00NOTITLE"}

	brandable := g.Generate(candidate, model.SourcingOption{Brandable: true})
	assert.Equal(t, "NORDIK Premium Product", brandable.Title)

	plain := g.Generate(candidate, model.SourcingOption{Brandable: false})
	assert.Equal(t, "Product B00NOTITLE", plain.Title)
}

func TestTitleTruncation(t *testing.T) {
	g := NewTemplateGenerator("NORDIK")
	long := strings.Repeat("Extraordinarily ", 20) + "Long Product Name"
	tpl := g.Generate(model.Candidate{ID: "cand-4", Title: long}, model.SourcingOption{})

	assert.LessOrEqual(t, len(tpl.Title), 200)
	assert.True(t, strings.HasSuffix(tpl.Title, "..."))
}

func TestSearchTermsCapped(t *testing.T) {
	words := make([]string, 40)
	for i := range words {
		words[i] = "keyword" + strings.Repeat("x", i%3)
	}
	tpl := NewTemplateGenerator("B").Generate(
		model.Candidate{ID: "cand-5", Title: strings.Join(words, " ")},
		model.SourcingOption{},
	)
	assert.LessOrEqual(t, len(strings.Fields(tpl.SearchTerms)), 20)
}
