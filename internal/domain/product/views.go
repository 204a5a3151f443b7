package product

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

// Cache keys for catalog views.
const (
	listKeyPrefix = "catalog:list:"
	categoriesKey = "catalog:categories"
)

func productKey(id int64) string {
	return "catalog:product:" + strconv.FormatInt(id, 10)
}

func listKey(category string) string {
	return listKeyPrefix + category
}

// invalidate drops every view that may show product id. Cache failures are
// logged; the database stays authoritative.
func (o *options) invalidate(ctx context.Context, id int64) {
	if o.views == nil {
		return
	}
	if err := o.views.Delete(ctx, productKey(id), categoriesKey); err != nil {
		o.logger.Warn("cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
	if err := o.views.DeletePrefix(ctx, listKeyPrefix); err != nil {
		o.logger.Warn("cache invalidation failed", zap.String("prefix", listKeyPrefix), zap.Error(err))
	}
}

// cached reads key into dst, or calls load and stores its result.
func cached[T any](ctx context.Context, o *options, key string, load func() (T, error)) (T, error) {
	if o.views != nil {
		var hit T
		ok, err := o.views.Get(ctx, key, &hit)
		if err != nil {
			o.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return hit, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if o.views != nil {
		if err := o.views.Set(ctx, key, v, o.viewTTL); err != nil {
			o.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
