package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"outage_notification_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

const (
	fetchTimeout  = 15 * time.Second
	maxBodyBytes  = 8 << 20
	imageAltMark  = "ГПВ"
	pageDateShort = "02.01.06"
	pageDateLong  = "02.01.2006"
)

var (
	imgTagRe   = regexp.MustCompile(`(?is)<img[^>]+>`)
	attrRe     = regexp.MustCompile(`(?is)(alt|src)\s*=\s*"([^"]*)"`)
	pageDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2,4}`)
	htmlTagRe  = regexp.MustCompile(`(?s)<[^>]+>`)
	// "підчерга 3.1 – 10:00-11:00, 14:00-15:00" in the page body.
	textScheduleRe = regexp.MustCompile(`підчерга (\d\.\d) [–-] ([^;\n<]*)`)
)

// HTTPFetcher implements Fetcher over the provider's public page.
type HTTPFetcher struct {
	client  *http.Client
	pageURL string
	baseURL string
	loc     *time.Location
	logger  *logrus.Entry
}

func NewHTTPFetcher(pageURL string, loc *time.Location, logger *logrus.Entry) (*HTTPFetcher, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source page URL: %w", err)
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		pageURL: pageURL,
		baseURL: u.Scheme + "://" + u.Host,
		loc:     loc,
		logger:  logger,
	}, nil
}

// FetchPage downloads the provider page and extracts the published
// schedule images (one per date) plus the text-layer schedules.
func (f *HTTPFetcher) FetchPage(ctx context.Context) (*Page, error) {
	body, err := f.get(ctx, f.pageURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching source page: %w", err)
	}
	html := string(body)

	page := &Page{TextSchedules: make(map[schedule.Date]map[schedule.SubqueueID]string)}
	for _, tag := range imgTagRe.FindAllString(html, -1) {
		alt, src := imgAttrs(tag)
		if !strings.Contains(alt, imageAltMark) || src == "" {
			continue
		}
		date, ok := f.dateFromLabel(alt)
		if !ok {
			f.logger.WithField("alt", alt).Warn("Schedule image without a parseable date, skipping")
			continue
		}
		imgURL := src
		if strings.HasPrefix(imgURL, "/") {
			imgURL = f.baseURL + imgURL
		}
		page.Images = append(page.Images, PageImage{
			DateLabel: alt,
			Date:      date,
			URL:       imgURL,
			Token:     imgURL,
		})
	}

	f.extractTextSchedules(html, page)

	f.logger.WithField("images", len(page.Images)).Debug("Source page fetched")
	return page, nil
}

// FetchImage downloads and decodes one schedule bitmap.
func (f *HTTPFetcher) FetchImage(ctx context.Context, imgURL string) (image.Image, error) {
	body, err := f.get(ctx, imgURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching schedule image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error decoding schedule image %s: %w", imgURL, err)
	}
	return img, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// dateFromLabel parses the date out of an image alt like "ГПВ-17.01.26"
// or "ГПВ-17.01.2026".
func (f *HTTPFetcher) dateFromLabel(label string) (schedule.Date, bool) {
	raw := pageDateRe.FindString(label)
	if raw == "" {
		return "", false
	}
	layout := pageDateLong
	if len(raw) == len(pageDateShort) {
		layout = pageDateShort
	}
	t, err := time.ParseInLocation(layout, raw, f.loc)
	if err != nil {
		return "", false
	}
	return schedule.DateOf(t), true
}

// imgAttrs extracts the alt and src attribute values from an <img> tag.
func imgAttrs(tag string) (alt, src string) {
	for _, m := range attrRe.FindAllStringSubmatch(tag, -1) {
		switch strings.ToLower(m[1]) {
		case "alt":
			alt = m[2]
		case "src":
			src = m[2]
		}
	}
	return alt, src
}

// extractTextSchedules pulls "підчерга N.N – ..." entries out of the
// page body. The page does not tie them to a date, so they are filed
// under every date an image was published for; the monitor only reads
// them as a per-date fallback.
func (f *HTTPFetcher) extractTextSchedules(html string, page *Page) {
	text := htmlTagRe.ReplaceAllString(html, "\n")
	matches := textScheduleRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return
	}
	parsed := make(map[schedule.SubqueueID]string, len(matches))
	for _, m := range matches {
		parsed[schedule.SubqueueID(m[1])] = strings.TrimSpace(m[2])
	}
	for _, img := range page.Images {
		page.TextSchedules[img.Date] = parsed
	}
}

var _ Fetcher = (*HTTPFetcher)(nil)
