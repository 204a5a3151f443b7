package product

import (
	"strings"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/model"
	"github.com/example/pod-storefront/internal/provider"
)

// FromProvider maps a provider product onto the local schema. The price comes
// from the enabled variant, falling back to the first one, converted from
// subunits. New rows start active; an existing row keeps its own status and
// category when upserted.
func FromProvider(shopID string, p *provider.Product) (*model.Product, error) {
	if p.ID == "" {
		return nil, apperr.Validation("provider product has no id")
	}
	v, ok := p.PriceVariant()
	if !ok {
		return nil, apperr.Validation("provider product %s has no variants", p.ID)
	}

	image := p.PrimaryImage()
	if image == "" {
		image = model.PlaceholderImage
	}

	return &model.Product{
		ProviderProductID: p.ID.String(),
		ProviderShopID:    shopID,
		Name:              strings.TrimSpace(p.Title),
		Description:       p.Description,
		Price:             provider.ToMajor(v.Price),
		ImageURL:          image,
		Category:          categoryFromTags(p.Tags),
		Status:            model.ProductStatusActive,
		ProviderData:      p.Raw,
	}, nil
}

// categoryFromTags uses the first non-empty tag, lower-cased, as the
// storefront collection.
func categoryFromTags(tags []string) string {
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			return strings.ToLower(t)
		}
	}
	return ""
}

// priceUpdate sets every enabled variant to price, or every variant when none
// is enabled.
func priceUpdate(p *provider.Product, minor int64) []provider.VariantInput {
	var enabled, all []provider.VariantInput
	for _, v := range p.Variants {
		in := provider.VariantInput{ID: v.ID, Price: minor}
		all = append(all, in)
		if v.IsEnabled {
			enabled = append(enabled, in)
		}
	}
	if len(enabled) > 0 {
		return enabled
	}
	return all
}
