// Package detail renders read-only depot and product views. Views never carry
// empty gaps: missing values are replaced by fixed fallbacks.
package detail

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cementops/admin/internal/gateway"
	"cementops/admin/internal/nav"
	"cementops/admin/internal/refdata"
	"cementops/admin/internal/remote"
)

const NotAvailable = "N/A"

const dateLayout = "02 Jan 2006 15:04"

type Reader interface {
	refdata.DepotSource
	GetProduct(ctx context.Context, id int64) (remote.Product, error)
}

type Options struct {
	Currency         string
	FallbackImageURL string
}

type Viewer struct {
	r    Reader
	opts Options
	log  *logrus.Entry
}

func NewViewer(r Reader, opts Options, log *logrus.Entry) *Viewer {
	if opts.Currency == "" {
		opts.Currency = money.IDR
	}
	return &Viewer{r: r, opts: opts, log: log}
}

type ProductFields struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Stock       string `json:"stock"`
}

type ProductView struct {
	Redirect string         `json:"redirect,omitempty"`
	Error    string         `json:"error,omitempty"`
	Product  *ProductFields `json:"product,omitempty"`
}

type DepotFields struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Region      string `json:"region"`
	SubRegion   string `json:"subRegion"`
	DateCreated string `json:"dateCreated"`
}

type DepotView struct {
	Redirect string       `json:"redirect,omitempty"`
	Error    string       `json:"error,omitempty"`
	Depot    *DepotFields `json:"depot,omitempty"`
}

// Product loads one product. An empty id redirects to the product list
// without touching the API.
func (v *Viewer) Product(ctx context.Context, rawID string) ProductView {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return ProductView{Redirect: nav.ProductList}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return ProductView{Error: "Invalid product id."}
	}

	p, err := v.r.GetProduct(ctx, id)
	if err != nil {
		v.log.WithError(err).WithField("product_id", id).Warn("product detail fetch failed")
		return ProductView{Error: fetchMessage("product", err)}
	}
	return ProductView{Product: v.productFields(p)}
}

// Depot loads one depot together with the region names it refers to. The
// joined load fails as a whole.
func (v *Viewer) Depot(ctx context.Context, rawID string) DepotView {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return DepotView{Redirect: nav.DepotList}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return DepotView{Error: "Invalid depot id."}
	}

	data, err := refdata.LoadDepot(ctx, v.r, id)
	if err != nil {
		v.log.WithError(err).WithField("depot_id", id).Warn("depot detail fetch failed")
		return DepotView{Error: fetchMessage("depot", err)}
	}
	return DepotView{Depot: DepotFieldsFrom(data)}
}

// DepotFieldsFrom renders an already loaded depot.
func DepotFieldsFrom(data refdata.DepotData) *DepotFields {
	d := data.Depot
	f := &DepotFields{
		ID:          d.ID,
		Name:        orNA(d.Name),
		Region:      NotAvailable,
		SubRegion:   NotAvailable,
		DateCreated: NotAvailable,
	}
	for _, r := range data.Parents {
		if r.ID == d.ParentID {
			f.Region = orNA(r.Name)
			break
		}
	}
	for _, c := range data.Children {
		if c.ID == d.ChildID {
			f.SubRegion = orNA(c.Name)
			break
		}
	}
	if !d.DateCreated.IsZero() {
		f.DateCreated = d.DateCreated.Format(dateLayout)
	}
	return f
}

func (v *Viewer) productFields(p remote.Product) *ProductFields {
	f := &ProductFields{
		ID:          p.ID,
		Name:        orNA(p.Name),
		Description: orNA(p.Description),
		SKU:         orNA(p.SKU),
		Category:    orNA(p.Category),
		Price:       FormatPrice(p.Price, firstNonEmpty(p.Currency, v.opts.Currency)),
		ImageURL:    p.ImageURL,
		Stock:       NotAvailable,
	}
	if f.Price == NotAvailable {
		v.log.WithFields(logrus.Fields{"product_id": p.ID, "price": p.Price.Decimal.String()}).
			Warn("product price out of range")
	}
	if strings.TrimSpace(f.ImageURL) == "" {
		f.ImageURL = v.opts.FallbackImageURL
	}
	if p.Stock != nil {
		f.Stock = strconv.FormatInt(*p.Stock, 10)
	}
	return f
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// FormatPrice renders price in the given currency; a missing price renders
// as zero in that currency. A price whose minor units overflow int64 renders
// as NotAvailable.
func FormatPrice(price decimal.NullDecimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	cur := money.GetCurrency(code)
	if cur == nil {
		code = money.IDR
		cur = money.GetCurrency(code)
	}
	if !price.Valid {
		return money.New(0, code).Display()
	}
	shifted := price.Decimal.Shift(int32(cur.Fraction)).Round(0)
	if shifted.GreaterThan(maxMinor) || shifted.LessThan(minMinor) {
		return NotAvailable
	}
	minor := shifted.IntPart()
	return money.New(minor, code).Display()
}

func fetchMessage(what string, err error) string {
	switch {
	case errors.Is(err, gateway.ErrNoCredential), gateway.IsStatus(err, http.StatusUnauthorized):
		return "Your session has expired. Please sign in again."
	case gateway.IsStatus(err, http.StatusNotFound):
		return "The " + what + " could not be found."
	default:
		return "Failed to load " + what + " details. Please try again."
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
