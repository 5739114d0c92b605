// Package pager splits filtered lists into numbered pages.
package pager

// PerPage is the row count of the appointment tables.
const PerPage = 8

// Ellipsis marks a gap in the page numbers returned by Numbers.
const Ellipsis = 0

// Page is one window over a list of Total items.
type Page struct {
	Number  int // 1-based, clamped to [1, Pages]
	PerPage int
	Total   int
	Pages   int // 0 when the list is empty
	Start   int // index of the first item, inclusive
	End     int // index after the last item
}

// Paginate clamps page into range and computes the window.
func Paginate(total, page, perPage int) Page {
	if perPage < 1 {
		perPage = PerPage
	}
	if total < 0 {
		total = 0
	}

	pages := (total + perPage - 1) / perPage
	last := pages
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	return Page{Number: page, PerPage: perPage, Total: total, Pages: pages, Start: start, End: end}
}

// Slice returns the items of p.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return nil
	}
	end := p.End
	if end > len(items) {
		end = len(items)
	}
	return items[p.Start:end]
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.Pages }

// Prev returns the previous page number.
func (p Page) Prev() int { return p.Number - 1 }

// Next returns the next page number.
func (p Page) Next() int { return p.Number + 1 }

// Offset returns the 1-based row number of the first item on the page.
func (p Page) Offset() int { return p.Start + 1 }

// Numbers lists the page links to show. Up to five pages are listed in
// full; otherwise the first and last page, the current page and its
// neighbours, with Ellipsis standing in for the gaps.
func Numbers(current, total int) []int {
	if total <= 5 {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out
	}

	out := []int{1}
	if current > 3 {
		out = append(out, Ellipsis)
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}

	if current < total-2 {
		out = append(out, Ellipsis)
	}
	return append(out, total)
}
