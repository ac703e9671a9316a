// internal/models/summary.go
package models

// CategorySummary is one row of the per-category totals shown next to the
// calendar: a member or category with its accumulated day count.
type CategorySummary struct {
	Title      string  `json:"title"`
	SubTitle   string  `json:"subTitle,omitempty"`
	Color      string  `json:"color,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	EventCount float64 `json:"eventCount"`
}
