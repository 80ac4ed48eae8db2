// Package grid classifies the provider's schedule table bitmap into raw
// per-subqueue schedule text by dominant cell color. There is no
// character recognition: the table layout is fixed (subqueue rows by
// hour columns) and each cell's fill color encodes the status.
package grid

import (
	"fmt"
	"image"
	"strings"

	"outage_notification_bot/internal/domain/schedule"
)

// Config describes the table's pixel bounding box and grid dimensions.
type Config struct {
	Left   int
	Top    int
	Right  int
	Bottom int
	Rows   int
	Cols   int
}

// Default grid dimensions: 12 subqueue rows (queues 1-6, two phases
// each) by 24 hour columns.
const (
	DefaultRows = 12
	DefaultCols = 24
)

// DefaultConfig places the table at fixed image-relative fractions
// (5-95% horizontal, 15-95% vertical), matching the provider's layout
// when no calibration is available.
func DefaultConfig(bounds image.Rectangle) Config {
	w := bounds.Dx()
	h := bounds.Dy()
	return Config{
		Left:   bounds.Min.X + w*5/100,
		Right:  bounds.Min.X + w*95/100,
		Top:    bounds.Min.Y + h*15/100,
		Bottom: bounds.Min.Y + h*95/100,
		Rows:   DefaultRows,
		Cols:   DefaultCols,
	}
}

// cellMargin shrinks each sampled cell to avoid grid-line contamination.
const cellMargin = 3

// dominanceThreshold is the fraction of sampled pixels the winning color
// band must exceed. Anti-aliased borders and overlaid text produce mixed
// colors; below the threshold the cell defaults to "on", the least
// disruptive reading.
const dominanceThreshold = 0.3

// Reference color bands in HSV, hue on the 0-179 scale, saturation and
// value on 0-255. Calibrated against the provider's published table:
// blue/cyan cells mark guaranteed outages, light gray possible ones,
// white means power on.
type hsvBand struct {
	hMin, hMax uint8
	sMin, sMax uint8
	vMin, vMax uint8
}

var (
	bandOff      = hsvBand{hMin: 100, hMax: 120, sMin: 50, sMax: 255, vMin: 100, vMax: 255}
	bandPossible = hsvBand{hMin: 0, hMax: 179, sMin: 0, sMax: 30, vMin: 200, vMax: 250}
	bandOn       = hsvBand{hMin: 0, hMax: 179, sMin: 0, sMax: 20, vMin: 250, vMax: 255}
)

func (b hsvBand) contains(h, s, v uint8) bool {
	return h >= b.hMin && h <= b.hMax && s >= b.sMin && s <= b.sMax && v >= b.vMin && v <= b.vMax
}

type cellStatus int

const (
	statusOn cellStatus = iota
	statusPossible
	statusOff
)

// SubqueueForRow maps table row r to its subqueue id. Rows interleave
// the two phases of each queue: 1.1, 1.2, 2.1, 2.2, ...
func SubqueueForRow(r int) schedule.SubqueueID {
	return schedule.SubqueueID(fmt.Sprintf("%d.%d", r/2+1, r%2+1))
}

// Classify reads one schedule table bitmap and returns raw labeled
// schedule text per subqueue. Subqueues without any outage cells are
// omitted. A nil or degenerate image yields an empty mapping; the pass
// is a single O(rows*cols) scan with no retries.
func Classify(img image.Image, cfg Config) map[schedule.SubqueueID]string {
	schedules := make(map[schedule.SubqueueID]string)
	if img == nil || cfg.Rows <= 0 || cfg.Cols <= 0 {
		return schedules
	}
	cellW := (cfg.Right - cfg.Left) / cfg.Cols
	cellH := (cfg.Bottom - cfg.Top) / cfg.Rows
	if cellW <= 2*cellMargin || cellH <= 2*cellMargin {
		return schedules
	}

	for row := 0; row < cfg.Rows; row++ {
		var off, possible []string
		for col := 0; col < cfg.Cols; col++ {
			x1 := cfg.Left + col*cellW + cellMargin
			y1 := cfg.Top + row*cellH + cellMargin
			x2 := cfg.Left + (col+1)*cellW - cellMargin
			y2 := cfg.Top + (row+1)*cellH - cellMargin

			token := fmt.Sprintf("%02d:00-%02d:00", col, col+1)
			switch classifyCell(img, x1, y1, x2, y2) {
			case statusOff:
				off = append(off, token)
			case statusPossible:
				possible = append(possible, token)
			}
		}

		var parts []string
		if len(off) > 0 {
			parts = append(parts, schedule.LabelOff+" "+strings.Join(off, ", "))
		}
		if len(possible) > 0 {
			parts = append(parts, schedule.LabelPossible+" "+strings.Join(possible, ", "))
		}
		if len(parts) > 0 {
			schedules[SubqueueForRow(row)] = strings.Join(parts, "; ")
		}
	}
	return schedules
}

func classifyCell(img image.Image, x1, y1, x2, y2 int) cellStatus {
	var offCount, possibleCount, onCount, total int
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			h, s, v := rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			if bandOff.contains(h, s, v) {
				offCount++
			}
			if bandPossible.contains(h, s, v) {
				possibleCount++
			}
			if bandOn.contains(h, s, v) {
				onCount++
			}
			total++
		}
	}
	if total == 0 {
		return statusOn
	}

	max := offCount
	status := statusOff
	if possibleCount > max {
		max = possibleCount
		status = statusPossible
	}
	if onCount > max {
		max = onCount
		status = statusOn
	}
	if float64(max)/float64(total) <= dominanceThreshold {
		return statusOn
	}
	return status
}

// rgbToHSV converts to HSV with hue scaled to 0-179 and saturation and
// value to 0-255, the scale the reference bands are expressed in.
func rgbToHSV(r, g, b uint8) (h, s, v uint8) {
	maxC := r
	if g > maxC {
		maxC = g
	}
	if b > maxC {
		maxC = b
	}
	minC := r
	if g < minC {
		minC = g
	}
	if b < minC {
		minC = b
	}
	v = maxC
	delta := int(maxC) - int(minC)
	if maxC == 0 || delta == 0 {
		return 0, 0, v
	}
	s = uint8(delta * 255 / int(maxC))

	var hue int
	switch maxC {
	case r:
		hue = 60 * (int(g) - int(b)) / delta
	case g:
		hue = 120 + 60*(int(b)-int(r))/delta
	default:
		hue = 240 + 60*(int(r)-int(g))/delta
	}
	if hue < 0 {
		hue += 360
	}
	h = uint8(hue / 2)
	return h, s, v
}
