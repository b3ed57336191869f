// Package pagination windows pre-rendered result rows into fixed-size pages.
package pagination

import (
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// NoHeader is the headerEnd value for row sets without header rows.
const NoHeader = -1

// Nav describes the previous/next control appended to a multi-page window.
type Nav struct {
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Window is the selected page plus its navigation control.
type Window[T any] struct {
	Rows       []T
	Page       int
	TotalPages int
	Nav        *Nav
}

// Paginate splits rows into pages. headerEnd is the zero-based index of the
// last header row, repeated at the top of every page. When rows fit below
// budget a single page is returned. Otherwise each page holds the header
// and budget-2-headerEnd body rows, leaving one row for navigation.
func Paginate[T any](rows []T, headerEnd, budget int) ([][]T, error) {
	if headerEnd < NoHeader {
		return nil, apperrors.NewInvalidInput("header index must be -1 or greater", map[string]any{"header_end": headerEnd})
	}
	if len(rows) < budget {
		return [][]T{rows}, nil
	}

	chunk := budget - 2 - headerEnd
	if chunk <= 0 {
		return nil, apperrors.NewInvalidInput("page budget too small for header", map[string]any{"budget": budget, "header_end": headerEnd})
	}

	headerCount := headerEnd + 1
	if headerCount > len(rows) {
		headerCount = len(rows)
	}
	header := rows[:headerCount]
	body := rows[headerCount:]

	pages := make([][]T, 0, (len(body)+chunk-1)/chunk)
	for start := 0; start < len(body); start += chunk {
		end := start + chunk
		if end > len(body) {
			end = len(body)
		}
		page := make([]T, 0, headerCount+end-start)
		page = append(page, header...)
		page = append(page, body[start:end]...)
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		pages = append(pages, append([]T(nil), header...))
	}
	return pages, nil
}

// ResolvePage clamps requested into [1, totalPages]; zero pages count as one.
func ResolvePage(requested, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	switch {
	case requested < 1:
		return 1
	case requested > totalPages:
		return totalPages
	}
	return requested
}

// Select paginates rows and returns the resolved page, attaching a
// navigation control when more than one page exists.
func Select[T any](rows []T, headerEnd, budget, requested int) (Window[T], error) {
	pages, err := Paginate(rows, headerEnd, budget)
	if err != nil {
		return Window[T]{}, err
	}
	page := ResolvePage(requested, len(pages))
	w := Window[T]{
		Rows:       pages[page-1],
		Page:       page,
		TotalPages: len(pages),
	}
	if len(pages) > 1 {
		w.Nav = &Nav{
			Page:       page,
			TotalPages: len(pages),
			HasPrev:    page > 1,
			HasNext:    page < len(pages),
		}
	}
	return w, nil
}
