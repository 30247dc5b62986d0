package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/leafscan-go/domain/results"
)

// Percent renders a 0..1 confidence as a whole percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// DiseaseName turns a class label like "Tomato_Early_Blight" into display text.
func DiseaseName(label string) string {
	label = strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
	if label == "" {
		return "Unknown"
	}
	return strings.Join(strings.Fields(label), " ")
}

// Clock formats d as mm:ss, or h:mm:ss past an hour.
func Clock(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// ResultRow is the rendering of one result in a list.
type ResultRow struct {
	ScanIndex int
	Title     string
	Detail    string
	Advice    string
	Severity  string
	Healthy   bool
	Pending   bool
	HasImage  bool
}

// RowFor formats r relative to now.
func RowFor(r results.Result, now time.Time) ResultRow {
	row := ResultRow{
		ScanIndex: r.ScanIndex,
		Title:     fmt.Sprintf("%s %s", DiseaseName(r.Disease), Percent(r.Confidence)),
		Healthy:   r.Healthy(),
		HasImage:  len(r.Thumbnail) > 0,
	}
	var detail []string
	if r.ScanIndex > 0 {
		detail = append(detail, fmt.Sprintf("#%d", r.ScanIndex))
	}
	if r.Model != "" {
		detail = append(detail, r.Model.Label())
	}
	if r.InferenceTimeMs > 0 {
		detail = append(detail, humanize.FtoaWithDigits(r.InferenceTimeMs, 1)+" ms")
	}
	if r.Position != nil {
		detail = append(detail, fmt.Sprintf("pan %d tilt %d", r.Position.Pan, r.Position.Tilt))
	}
	if !r.ReceivedAt.IsZero() {
		detail = append(detail, humanize.RelTime(r.ReceivedAt, now, "ago", "from now"))
	}
	row.Detail = strings.Join(detail, " · ")

	switch {
	case !r.HasAdvice:
		row.Pending = true
		row.Advice = "Awaiting advice..."
	case r.Advice == nil:
		row.Advice = "No treatment needed"
	default:
		row.Severity = r.Advice.Severity()
		row.Advice = r.Advice.Text()
		if row.Advice == "" {
			row.Advice = "No advice text"
		}
	}
	return row
}
