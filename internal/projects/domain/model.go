package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func Statuses() []Status {
	return []Status{StatusDraft, StatusInProgress, StatusCompleted, StatusArchived}
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Category string

const (
	CategoryResidential Category = "residential"
	CategoryCommercial  Category = "commercial"
	CategoryIndustrial  Category = "industrial"
	CategoryCultural    Category = "cultural"
	CategoryEducational Category = "educational"
	CategoryHealthcare  Category = "healthcare"
	CategoryHospitality Category = "hospitality"
	CategoryUrban       Category = "urban"
	CategoryInterior    Category = "interior"
	CategoryLandscape   Category = "landscape"
)

func Categories() []Category {
	return []Category{
		CategoryResidential, CategoryCommercial, CategoryIndustrial, CategoryCultural, CategoryEducational,
		CategoryHealthcare, CategoryHospitality, CategoryUrban, CategoryInterior, CategoryLandscape,
	}
}

func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// Project is an architecture project owned by one architect.
type Project struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	Category         Category    `json:"category"`
	Status           Status      `json:"status"`
	Location         string      `json:"location"`
	Area             *float64    `json:"area"`
	Budget           *float64    `json:"budget"`
	StartDate        *time.Time  `json:"start_date"`
	EndDate          *time.Time  `json:"end_date"`
	OwnerID          uuid.UUID   `json:"owner_id"`
	OwnerUsername    string      `json:"owner_username"`
	ClientIDs        []uuid.UUID `json:"client_ids"`
	IsFeatured       bool        `json:"is_featured"`
	IsPublished      bool        `json:"is_published"`
	ViewsCount       int         `json:"views_count"`
	CoverKey         string      `json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (p Project) Owner() uuid.UUID { return p.OwnerID }
func (p Project) Public() bool     { return p.IsPublished }

func (p Project) Assigned(userID uuid.UUID) bool {
	for _, id := range p.ClientIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Image belongs to a project; at most one per project is main.
type Image struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	StorageKey string    `json:"-"`
	Caption    string    `json:"caption"`
	IsMain     bool      `json:"is_main"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
}

// MainImage returns the image flagged main, else the first one.
func MainImage(images []Image) *Image {
	for i := range images {
		if images[i].IsMain {
			return &images[i]
		}
	}
	if len(images) > 0 {
		return &images[0]
	}
	return nil
}

// Count pairs a key with a number, for grouped statistics.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
