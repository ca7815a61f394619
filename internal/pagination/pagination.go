package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MaxOffset bounds how far a request may page; pages past it are clamped
// and come back empty.
const MaxOffset = math.MaxInt32

// Request is a 1-based page request.
type Request struct {
	Page int
	Size int
}

func New(page, size int) Request {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if last := MaxOffset/size + 1; page > last {
		page = last
	}
	return Request{Page: page, Size: size}
}

// FromQuery reads ?page= with a fixed page size. Bad values fall back to page 1.
func FromQuery(c *gin.Context, size int) Request {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		page = 1
	}
	return New(page, size)
}

func (r Request) Limit() int  { return r.Size }
func (r Request) Offset() int { return (r.Page - 1) * r.Size }

type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Pages    int  `json:"pages"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_previous"`
}

func NewPage[T any](items []T, req Request, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return Page[T]{
		Items:    items,
		Page:     req.Page,
		PageSize: req.Size,
		Total:    total,
		Pages:    pages,
		HasNext:  req.Page < pages,
		HasPrev:  req.Page > 1,
	}
}

// Map converts the items of a page, keeping its counters.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, it := range p.Items {
		out[i] = fn(it)
	}
	return Page[U]{
		Items: out, Page: p.Page, PageSize: p.PageSize, Total: p.Total,
		Pages: p.Pages, HasNext: p.HasNext, HasPrev: p.HasPrev,
	}
}
