package remote

import (
	"time"

	"github.com/shopspring/decimal"
)

type Region struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SubRegion is the flat form of a sub-region record: the nested region
// reference of the API is reduced to ParentID at load time.
type SubRegion struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parentId"`
}

type Depot struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ParentID    int64     `json:"parentId"`
	ChildID     int64     `json:"childId"`
	DateCreated time.Time `json:"dateCreated"`
}

// DepotWrite is the create/update body. Ids always travel as integers.
type DepotWrite struct {
	Name        string `json:"name"`
	RegionID    int64  `json:"region_id"`
	SubRegionID int64  `json:"sub_region_id"`
}

type Product struct {
	ID          int64
	Name        string
	Description string
	SKU         string
	Category    string
	Price       decimal.NullDecimal
	Currency    string
	ImageURL    string
	Stock       *int64
}

// ---------- raw API shapes ----------

type ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type subRegionRecord struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Region   *ref   `json:"region"`
	RegionID *int64 `json:"region_id"`
}

func (r subRegionRecord) normalize() SubRegion {
	return SubRegion{ID: r.ID, Name: r.Name, ParentID: refID(r.Region, r.RegionID)}
}

type depotRecord struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Region      *ref       `json:"region"`
	SubRegion   *ref       `json:"sub_region"`
	RegionID    *int64     `json:"region_id"`
	SubRegionID *int64     `json:"sub_region_id"`
	DateCreated *time.Time `json:"date_created"`
	CreatedAt   *time.Time `json:"created_at"`
}

func (r depotRecord) normalize() Depot {
	d := Depot{
		ID:       r.ID,
		Name:     r.Name,
		ParentID: refID(r.Region, r.RegionID),
		ChildID:  refID(r.SubRegion, r.SubRegionID),
	}
	switch {
	case r.DateCreated != nil:
		d.DateCreated = *r.DateCreated
	case r.CreatedAt != nil:
		d.DateCreated = *r.CreatedAt
	}
	return d
}

type productRecord struct {
	ID          int64               `json:"id"`
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	SKU         *string             `json:"sku"`
	Category    *ref                `json:"category"`
	Price       decimal.NullDecimal `json:"price"`
	Currency    *string             `json:"currency"`
	ImageURL    *string             `json:"image_url"`
	Image       *string             `json:"image"`
	Stock       *int64              `json:"stock"`
}

func (r productRecord) normalize() Product {
	p := Product{
		ID:          r.ID,
		Name:        deref(r.Name),
		Description: deref(r.Description),
		SKU:         deref(r.SKU),
		Price:       r.Price,
		Currency:    deref(r.Currency),
		ImageURL:    deref(r.ImageURL),
		Stock:       r.Stock,
	}
	if p.ImageURL == "" {
		p.ImageURL = deref(r.Image)
	}
	if r.Category != nil {
		p.Category = r.Category.Name
	}
	return p
}

// refID prefers the nested reference and falls back to the flat id field.
func refID(nested *ref, flat *int64) int64 {
	if nested != nil {
		return nested.ID
	}
	if flat != nil {
		return *flat
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
