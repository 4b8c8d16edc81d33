package detail

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cementops/admin/internal/gateway"
	"cementops/admin/internal/nav"
	"cementops/admin/internal/refdata"
	"cementops/admin/internal/remote"
	"cementops/admin/internal/remote/remotetest"
)

const fallbackImage = "/static/img/no-image.png"

func newViewer(r Reader) *Viewer {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewViewer(r, Options{Currency: "USD", FallbackImageURL: fallbackImage}, logrus.NewEntry(l))
}

func TestProduct_NoIDRedirectsWithoutFetch(t *testing.T) {
	srv := remotetest.NewSeeded(t)
	v := newViewer(srv.API())

	assert.Equal(t, ProductView{Redirect: nav.ProductList}, v.Product(context.Background(), ""))
	assert.Equal(t, DepotView{Redirect: nav.DepotList}, v.Depot(context.Background(), "  "))
	assert.Zero(t, srv.TotalCalls())
}

func TestProduct_Fallbacks(t *testing.T) {
	srv := remotetest.NewSeeded(t)

	view := newViewer(srv.API()).Product(context.Background(), "3")
	require.Empty(t, view.Error)
	require.NotNil(t, view.Product)
	assert.Equal(t, ProductFields{
		ID:          3,
		Name:        "OPC 50kg",
		Description: NotAvailable,
		SKU:         NotAvailable,
		Category:    "Cement",
		Price:       "$65,000.00",
		ImageURL:    fallbackImage,
		Stock:       "120",
	}, *view.Product)
}

func TestProduct_AllOptionalMissing(t *testing.T) {
	srv := remotetest.New(t)
	srv.Data(http.MethodGet, "/products/5", `{"id":5}`)

	view := newViewer(srv.API()).Product(context.Background(), "5")
	require.NotNil(t, view.Product)
	assert.Equal(t, NotAvailable, view.Product.Name)
	assert.Equal(t, "$0.00", view.Product.Price)
	assert.Equal(t, NotAvailable, view.Product.Stock)
	assert.Equal(t, fallbackImage, view.Product.ImageURL)
}

func TestProduct_FetchFailureStaysOnPage(t *testing.T) {
	srv := remotetest.New(t)
	srv.Fail(http.MethodGet, "/products/3", http.StatusInternalServerError)

	view := newViewer(srv.API()).Product(context.Background(), "3")
	assert.Empty(t, view.Redirect)
	assert.Nil(t, view.Product)
	assert.Equal(t, "Failed to load product details. Please try again.", view.Error)
}

func TestProduct_MissingCredential(t *testing.T) {
	srv := remotetest.NewSeeded(t)
	api := remote.New(srv.Gateway(gateway.SessionCredentials{}))

	view := newViewer(api).Product(context.Background(), "3")
	assert.Equal(t, "Your session has expired. Please sign in again.", view.Error)
	assert.Empty(t, view.Redirect)
	assert.Zero(t, srv.TotalCalls())
}

func TestProduct_InvalidID(t *testing.T) {
	srv := remotetest.NewSeeded(t)
	view := newViewer(srv.API()).Product(context.Background(), "abc")
	assert.Equal(t, "Invalid product id.", view.Error)
	assert.Zero(t, srv.TotalCalls())
}

func TestDepot_ResolvesNames(t *testing.T) {
	srv := remotetest.NewSeeded(t)

	view := newViewer(srv.API()).Depot(context.Background(), "7")
	require.Empty(t, view.Error)
	assert.Equal(t, &DepotFields{
		ID:          7,
		Name:        "Depot Cikarang",
		Region:      "North",
		SubRegion:   "N2",
		DateCreated: "05 Mar 2024 08:00",
	}, view.Depot)
}

func TestDepot_JoinedFailureIsSingleError(t *testing.T) {
	srv := remotetest.NewSeeded(t)
	srv.Fail(http.MethodGet, "/sub-regions", http.StatusInternalServerError)

	view := newViewer(srv.API()).Depot(context.Background(), "7")
	assert.Nil(t, view.Depot)
	assert.Equal(t, "Failed to load depot details. Please try again.", view.Error)
}

func TestDepot_NotFound(t *testing.T) {
	srv := remotetest.NewSeeded(t)
	view := newViewer(srv.API()).Depot(context.Background(), "8")
	assert.Equal(t, "The depot could not be found.", view.Error)
}

func TestDepotFieldsFrom_UnknownReferences(t *testing.T) {
	f := DepotFieldsFrom(refdata.DepotData{Depot: remote.Depot{ID: 1, ParentID: 9, ChildID: 99}})
	assert.Equal(t, &DepotFields{
		ID:          1,
		Name:        NotAvailable,
		Region:      NotAvailable,
		SubRegion:   NotAvailable,
		DateCreated: NotAvailable,
	}, f)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$12.50", FormatPrice(decimal.NewNullDecimal(decimal.RequireFromString("12.5")), "usd"))
	assert.Equal(t, "$0.00", FormatPrice(decimal.NullDecimal{}, "USD"))
	assert.Equal(t, FormatPrice(decimal.NullDecimal{}, "IDR"), FormatPrice(decimal.NullDecimal{}, "???"))
	assert.Equal(t, NotAvailable, FormatPrice(decimal.NewNullDecimal(decimal.RequireFromString("1e30")), "USD"))
	assert.Equal(t, NotAvailable, FormatPrice(decimal.NewNullDecimal(decimal.RequireFromString("-1e30")), "USD"))
}

func TestProduct_PriceOutOfRangeIsLogged(t *testing.T) {
	srv := remotetest.New(t)
	srv.Data(http.MethodGet, "/products/4", `{"id":4,"name":"Bulk","price":"100000000000000000000"}`)
	l, hook := logtest.NewNullLogger()

	view := NewViewer(srv.API(), Options{Currency: "USD"}, logrus.NewEntry(l)).Product(context.Background(), "4")
	require.NotNil(t, view.Product)
	assert.Equal(t, NotAvailable, view.Product.Price)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "product price out of range", hook.LastEntry().Message)
}
