package zia

import (
	"context"
	"fmt"
)

// PageIterator walks a paginated users collection one page at a time. It is
// finite and not restartable: pages are requested in order from the start
// page, the server-declared totalPages from the first response bounds the
// walk, and an empty page stops it early as a guard against a server
// miscount. Each page request goes through the users.list call budget.
type PageIterator struct {
	client   *Client
	dept     string
	pageSize int

	next       int
	endPage    int // inclusive; 0 means no explicit bound
	totalPages int // -1 until the first response
	done       bool
}

// Users returns an iterator over the users collection, optionally filtered by
// department. endPage of 0 walks to the server-declared last page.
func (c *Client) Users(dept string, pageSize, startPage, endPage int) *PageIterator {
	if startPage < 1 {
		startPage = 1
	}
	return &PageIterator{
		client:     c,
		dept:       dept,
		pageSize:   pageSize,
		next:       startPage,
		endPage:    endPage,
		totalPages: -1,
	}
}

// Next fetches the next page. It returns (nil, nil) once the collection is
// exhausted. Any non-200 response is fatal for the whole fetch; the iterator
// is dead afterwards.
func (it *PageIterator) Next(ctx context.Context) (*Page, error) {
	if it.done {
		return nil, nil
	}
	if it.endPage > 0 && it.next > it.endPage {
		it.done = true
		return nil, nil
	}
	if it.totalPages >= 0 && it.next > it.totalPages {
		it.done = true
		return nil, nil
	}

	page, err := it.client.UsersPage(ctx, it.dept, it.next, it.pageSize)
	if err != nil {
		it.done = true
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}

	it.totalPages = page.TotalPages
	it.next++

	if len(page.Users) == 0 {
		it.done = true
		return nil, nil
	}
	return page, nil
}
