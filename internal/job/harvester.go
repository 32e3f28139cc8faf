package job

import (
	"context"

	"github.com/margincraft/resale-cli/internal/config"
	"github.com/margincraft/resale-cli/internal/model"
	"github.com/margincraft/resale-cli/pkg/keepa"
)

// KeepaHarvester adapts the Keepa client to the Harvester interface.
type KeepaHarvester struct {
	Client keepa.Client
	Limit  int
}

func (h KeepaHarvester) Harvest(ctx context.Context, cat config.Category) ([]model.Observation, error) {
	products, err := h.Client.TopProducts(ctx, keepa.CategoryQuery{
		CategoryID: cat.ID,
		Name:       cat.Name,
		Limit:      h.Limit,
		BSRMax:     cat.BSRMax,
		PriceMin:   cat.PriceMin,
		PriceMax:   cat.PriceMax,
	})
	if err != nil {
		return nil, err
	}

	obs := make([]model.Observation, 0, len(products))
	for _, p := range products {
		obs = append(obs, model.Observation{
			ASIN:                 p.ASIN,
			Title:                p.Title,
			Category:             p.Category,
			AvgPrice:             p.AvgPrice,
			BSR:                  p.BSR,
			EstimatedSalesPerDay: p.EstimatedSalesPerDay,
			ReviewsCount:         p.ReviewsCount,
			Rating:               p.Rating,
			Raw:                  p.Raw,
		})
	}
	return obs, nil
}
