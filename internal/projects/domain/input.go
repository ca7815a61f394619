package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

const (
	MaxTitleLen    = 100
	MaxShortLen    = 300
	MaxCaptionLen  = 200
	MaxLocationLen = 200
	dateLayout     = "2006-01-02"
)

// ProjectInput is the create/edit payload. Dates use YYYY-MM-DD.
type ProjectInput struct {
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	Category         string      `json:"category"`
	Status           string      `json:"status"`
	Location         string      `json:"location"`
	Area             *float64    `json:"area"`
	Budget           *float64    `json:"budget"`
	StartDate        string      `json:"start_date"`
	EndDate          string      `json:"end_date"`
	IsPublished      *bool       `json:"is_published"`
	OwnerID          *uuid.UUID  `json:"owner"`
	ClientIDs        []uuid.UUID `json:"clients"`
}

// Fields is a validated, normalised ProjectInput.
type Fields struct {
	Title            string
	Slug             string
	Description      string
	ShortDescription string
	Category         Category
	Status           Status
	Location         string
	Area             *float64
	Budget           *float64
	StartDate        *time.Time
	EndDate          *time.Time
	IsPublished      *bool
	ClientIDs        []uuid.UUID
}

// Normalize validates the payload, adding every problem to v, and returns
// the cleaned values with defaults applied.
func (in ProjectInput) Normalize(v *apperr.ValidationError) Fields {
	f := Fields{
		Title:            strings.TrimSpace(in.Title),
		Slug:             strings.TrimSpace(in.Slug),
		Description:      strings.TrimSpace(in.Description),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Category:         Category(strings.TrimSpace(in.Category)),
		Status:           Status(strings.TrimSpace(in.Status)),
		Location:         strings.TrimSpace(in.Location),
		Area:             in.Area,
		Budget:           in.Budget,
		IsPublished:      in.IsPublished,
	}

	switch {
	case f.Title == "":
		v.Add("title", "required")
	case utf8.RuneCountInString(f.Title) > MaxTitleLen:
		v.Add("title", "at most 100 characters")
	}
	if f.Slug != "" && !ValidSlug(f.Slug) {
		v.Add("slug", "only lower-case letters, digits and single dashes")
	}
	if f.Description == "" {
		v.Add("description", "required")
	}
	if f.ShortDescription == "" {
		f.ShortDescription = ShortDescription(f.Description)
	} else if utf8.RuneCountInString(f.ShortDescription) > MaxShortLen {
		v.Add("short_description", "at most 300 characters")
	}

	if f.Category == "" {
		f.Category = CategoryResidential
	} else if !f.Category.Valid() {
		v.Add("category", "unknown category")
	}
	if f.Status == "" {
		f.Status = StatusDraft
	} else if !f.Status.Valid() {
		v.Add("status", "unknown status")
	}
	if utf8.RuneCountInString(f.Location) > MaxLocationLen {
		v.Add("location", "at most 200 characters")
	}

	if f.Area != nil && *f.Area < 0 {
		v.Add("area", "must not be negative")
	}
	if f.Budget != nil && *f.Budget < 0 {
		v.Add("budget", "must not be negative")
	}

	f.StartDate = parseDate(v, "start_date", in.StartDate)
	f.EndDate = parseDate(v, "end_date", in.EndDate)
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		v.Add("end_date", "must not be before the start date")
	}

	seen := make(map[uuid.UUID]bool, len(in.ClientIDs))
	for _, id := range in.ClientIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		f.ClientIDs = append(f.ClientIDs, id)
	}
	return f
}

func parseDate(v *apperr.ValidationError, field, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		v.Add(field, "use YYYY-MM-DD")
		return nil
	}
	return &t
}

// ShortDescription cuts description to 297 runes plus "..." when it is
// longer than 300.
func ShortDescription(description string) string {
	if utf8.RuneCountInString(description) <= MaxShortLen {
		return description
	}
	r := []rune(description)
	return string(r[:MaxShortLen-3]) + "..."
}

// Apply copies validated fields onto p, keeping identity, owner and counters.
// A nil IsPublished leaves the current visibility alone.
func (f Fields) Apply(p *Project) {
	p.Title = f.Title
	p.Description = f.Description
	p.ShortDescription = f.ShortDescription
	p.Category = f.Category
	p.Status = f.Status
	p.Location = f.Location
	p.Area = f.Area
	p.Budget = f.Budget
	p.StartDate = f.StartDate
	p.EndDate = f.EndDate
	if f.IsPublished != nil {
		p.IsPublished = *f.IsPublished
	}
	p.ClientIDs = f.ClientIDs
	if f.Slug != "" {
		p.Slug = f.Slug
	}
}

// Sort orders for browsing.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
	SortTitle   = "title"
)

// BrowseFilter selects published projects for the public listing.
type BrowseFilter struct {
	Category Category
	Search   string
	Sort     string
	Limit    int
	Offset   int
}

// Clean drops unknown values instead of failing the listing.
func (f BrowseFilter) Clean() BrowseFilter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Category != "" && !f.Category.Valid() {
		f.Category = ""
	}
	switch f.Sort {
	case SortNewest, SortOldest, SortPopular, SortTitle:
	default:
		f.Sort = SortNewest
	}
	return f
}

// ListFilter narrows a portal listing by status.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Detail is what the project page shows.
type Detail struct {
	Project
	Images   []Image   `json:"images"`
	Related  []Project `json:"related"`
	Progress *int      `json:"progress"`
	CanEdit  bool      `json:"can_edit"`
}
