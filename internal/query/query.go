// Package query implements the stateless filter/sort/paginate pipeline over a
// snapshot of the event catalog. It never mutates its input and holds no
// locks, so it is safe to run concurrently with catalog mutation.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cormackle/ticketline/internal/model"
)

// Sort modes accepted by the engine. Anything else falls back to SortDateAsc.
const (
	SortDateAsc  = "date_asc"
	SortDateDesc = "date_desc"
	SortNewest   = "newest"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Params are the listing filters, parsed but not yet validated. DateFrom and
// DateTo stay raw strings: a bound that fails to parse is silently ignored
// rather than rejected.
type Params struct {
	Q        string
	Category string
	Venue    string
	DateFrom string
	DateTo   string
	Sort     string
	Page     int
	Limit    int
}

// ParseParams extracts listing parameters from a URL query string.
func ParseParams(values url.Values) Params {
	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	return Params{
		Q:        values.Get("q"),
		Category: values.Get("category"),
		Venue:    values.Get("venue"),
		DateFrom: values.Get("dateFrom"),
		DateTo:   values.Get("dateTo"),
		Sort:     values.Get("sort"),
		Page:     page,
		Limit:    limit,
	}
}

// Result is one page of events plus the pre-pagination totals.
type Result struct {
	Meta   model.ListMeta `json:"meta"`
	Events []model.Event  `json:"events"`
}

// Run filters, sorts, and paginates a snapshot of events.
func Run(events []model.Event, p Params) Result {
	items := filter(events, p)
	sortEvents(items, p.Sort)

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	total := len(items)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Result{
		Meta:   model.ListMeta{Total: total, Page: page, Limit: limit, Pages: pages},
		Events: items[start:end],
	}
}

func filter(events []model.Event, p Params) []model.Event {
	items := make([]model.Event, 0, len(events))
	items = append(items, events...)

	if p.Q != "" {
		q := strings.ToLower(p.Q)
		items = keep(items, func(e *model.Event) bool {
			return strings.Contains(strings.ToLower(e.Title+" "+e.Description), q)
		})
	}
	if p.Category != "" {
		items = keep(items, func(e *model.Event) bool {
			return strings.EqualFold(e.Category, p.Category)
		})
	}
	if p.Venue != "" {
		venue := strings.ToLower(p.Venue)
		items = keep(items, func(e *model.Event) bool {
			return strings.Contains(strings.ToLower(e.Venue), venue)
		})
	}
	if from, err := model.ParseTime(p.DateFrom); p.DateFrom != "" && err == nil {
		items = keep(items, func(e *model.Event) bool {
			return !e.Date.Before(from)
		})
	}
	if to, err := model.ParseTime(p.DateTo); p.DateTo != "" && err == nil {
		items = keep(items, func(e *model.Event) bool {
			return !e.Date.After(to)
		})
	}
	return items
}

func keep(items []model.Event, pred func(*model.Event) bool) []model.Event {
	kept := items[:0]
	for i := range items {
		if pred(&items[i]) {
			kept = append(kept, items[i])
		}
	}
	return kept
}

func sortEvents(items []model.Event, mode string) {
	switch mode {
	case SortDateDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Date.After(items[j].Date)
		})
	case SortNewest:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
	default: // SortDateAsc
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Date.Before(items[j].Date)
		})
	}
}
