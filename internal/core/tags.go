package core

import (
	"context"
	"strings"

	"github.com/siahsang/kiterunner/internal/utils/functional"
	"github.com/siahsang/kiterunner/internal/utils/stringutils"
	"github.com/siahsang/kiterunner/internal/validator"
	"github.com/siahsang/kiterunner/models"
)

// ListTags returns every tag label ordered by label.
func (c *Core) ListTags(ctx context.Context) ([]string, error) {
	labels, generation, ok, cacheErr := c.tagCache.Get(ctx)
	if cacheErr != nil {
		c.log.WarnContext(ctx, "tag cache read failed", "error", cacheErr)
	}
	if ok {
		return labels, nil
	}

	tags, err := c.repos.Tags.List(ctx)
	if err != nil {
		return nil, err
	}

	labels = functional.Map(tags, func(t *models.Tag) string { return t.Label })
	// Without a generation the write could overwrite a newer invalidation.
	if cacheErr == nil {
		if err := c.tagCache.Set(ctx, generation, labels); err != nil {
			c.log.WarnContext(ctx, "tag cache write failed", "error", err)
		}
	}
	return labels, nil
}

func (c *Core) invalidateTags(ctx context.Context) {
	if err := c.tagCache.Invalidate(ctx); err != nil {
		c.log.WarnContext(ctx, "tag cache invalidation failed", "error", err)
	}
}

// normalizeTags trims labels and drops repeats by slug, keeping the first
// occurrence in submission order.
func normalizeTags(v *validator.Validator, labels []string) []*models.Tag {
	tags := make([]*models.Tag, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		slug := stringutils.Slugify(label)
		if slug == "" {
			v.AddError("tagList", "Tags must contain at least one letter or digit.")
			continue
		}
		tags = append(tags, &models.Tag{Label: label, Slug: slug})
	}

	return functional.DistinctBy(tags, func(t *models.Tag) string { return t.Slug })
}
