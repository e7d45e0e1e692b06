package model

type Portfolio struct {
	Holdings []Holding
	Summary  *Summary
	Loaded   bool

	// HoldingsStale and SummaryStale mark a collection whose last fetch failed.
	HoldingsStale bool
	SummaryStale  bool
}

func (p Portfolio) Stale() bool {
	return p.HoldingsStale || p.SummaryStale
}

type PortfolioPage struct {
	Summary     *Summary
	Holdings    []Holding
	Total       int
	PerPage     int
	CurPage     int
	TotalPages  int
	HasNextPage bool

	HoldingsStale bool
	SummaryStale  bool
}

func (p Portfolio) Find(id int64) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.ID == id {
			return h, true
		}
	}
	return Holding{}, false
}

// Page returns the zero-based page of holdings, clamped to the available range.
func (p Portfolio) Page(page, perPage int) PortfolioPage {
	if perPage <= 0 {
		perPage = len(p.Holdings)
	}

	totalPages := 1
	if perPage > 0 && len(p.Holdings) > 0 {
		totalPages = (len(p.Holdings) + perPage - 1) / perPage
	}

	page = max(0, min(page, totalPages-1))

	var holdings []Holding
	if perPage > 0 {
		start := page * perPage
		end := min(start+perPage, len(p.Holdings))
		holdings = p.Holdings[start:end]
	}

	return PortfolioPage{
		Summary:     p.Summary,
		Holdings:    holdings,
		Total:       len(p.Holdings),
		PerPage:     perPage,
		CurPage:     page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages-1,

		HoldingsStale: p.HoldingsStale,
		SummaryStale:  p.SummaryStale,
	}
}

type Report struct {
	FileName string
	Content  []byte
	Link     string
}
