// Package source retrieves the provider's outage page: the published
// schedule table images per date and whatever text-layer schedules the
// page body carries.
package source

import (
	"context"
	"image"

	"outage_notification_bot/internal/domain/schedule"
)

// PageImage is one published schedule table bitmap. Token identifies
// the publication: the provider rewrites the image URL when it
// republishes a corrected table, so the URL serves as the identity
// token.
type PageImage struct {
	DateLabel string // alt text as published, e.g. "ГПВ-17.01.2026"
	Date      schedule.Date
	URL       string
	Token     string
}

// Page is one fetch of the provider page. TextSchedules holds the
// page-body schedules per subqueue, keyed by date; the text layer lags
// the images and is only a fallback when a bitmap cannot be read.
type Page struct {
	Images        []PageImage
	TextSchedules map[schedule.Date]map[schedule.SubqueueID]string
}

// Fetcher retrieves the provider page and its schedule images.
type Fetcher interface {
	FetchPage(ctx context.Context) (*Page, error)
	FetchImage(ctx context.Context, url string) (image.Image, error)
}
