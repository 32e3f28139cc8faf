package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

// SampleClient generates deterministic-shaped sample products without
// touching the network. Used when no API key is configured, so the rest
// of the pipeline can be exercised end to end.
type SampleClient struct{}

var sampleASINs = []string{
	"B08XYZ1234",
	"B09ABC5678",
	"B10DEF9012",
	"B11GHI3456",
	"B12JKL7890",
}

func (SampleClient) TopProducts(_ context.Context, q CategoryQuery) ([]Product, error) {
	n := q.Limit
	if n <= 0 || n > len(sampleASINs) {
		n = len(sampleASINs)
	}

	priceMin, priceMax := q.PriceMin, q.PriceMax
	if priceMax <= priceMin {
		priceMin, priceMax = 10, 60
	}
	bsrMax := q.BSRMax
	if bsrMax <= 1000 {
		bsrMax = 50000
	}

	products := make([]Product, 0, n)
	for i := 0; i < n; i++ {
		asin := sampleASINs[i]
		price := round2(priceMin + rand.Float64()*(priceMax-priceMin))
		bsr := 1000 + rand.IntN(bsrMax-1000)
		sales := round2(5 + rand.Float64()*45)
		reviews := 50 + rand.IntN(4950)
		rating := round2(3.5 + rand.Float64()*1.3)
		title := fmt.Sprintf("Sample product %d - %s", i+1, q.Name)

		raw, _ := json.Marshal(map[string]any{
			"asin":   asin,
			"title":  title,
			"sample": true,
		})

		products = append(products, Product{
			ASIN:                 asin,
			Title:                title,
			Category:             q.Name,
			AvgPrice:             &price,
			BSR:                  &bsr,
			EstimatedSalesPerDay: &sales,
			ReviewsCount:         &reviews,
			Rating:               &rating,
			Raw:                  raw,
		})
	}
	return products, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
