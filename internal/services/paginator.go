package services

import (
	"fmt"

	"github.com/daybookapp/backend/internal/models"
)

// Page is one slice of an ordered entry collection plus its metadata.
type Page struct {
	Items      []models.Entry `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
	TotalItems int            `json:"totalItems"`
}

// Paginate slices orderedEntries into the requested fixed-size page.
// Out-of-range pages are rejected rather than clamped so boundary bugs
// stay visible; the caller owns page/pageSize as external state and
// must re-request a valid page.
func Paginate(orderedEntries []models.Entry, page, pageSize int) (Page, error) {
	if pageSize < 1 {
		return Page{}, fmt.Errorf("invalid page size %d", pageSize)
	}

	totalItems := len(orderedEntries)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 || page > totalPages {
		return Page{}, fmt.Errorf("page %d out of range [1, %d]", page, totalPages)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}
	if start > totalItems {
		start = totalItems
	}

	items := make([]models.Entry, end-start)
	copy(items, orderedEntries[start:end])

	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}, nil
}
