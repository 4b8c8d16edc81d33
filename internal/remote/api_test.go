package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cementops/admin/internal/remote"
	"cementops/admin/internal/remote/remotetest"
)

func TestListSubRegions_FlattensRegionReference(t *testing.T) {
	srv := remotetest.New(t)
	srv.Data(http.MethodGet, "/sub-regions", `[
		{"id":10,"name":"N1","region":{"id":1}},
		{"id":11,"name":"N2","region_id":1},
		{"id":12,"name":"orphan"}
	]`)

	got, err := srv.API().ListSubRegions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []remote.SubRegion{
		{ID: 10, Name: "N1", ParentID: 1},
		{ID: 11, Name: "N2", ParentID: 1},
		{ID: 12, Name: "orphan", ParentID: 0},
	}, got)
}

func TestListRegions_EmptyDataIsEmptySlice(t *testing.T) {
	srv := remotetest.New(t)
	srv.Data(http.MethodGet, "/regions", `null`)

	got, err := srv.API().ListRegions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFetchErrorsAreTagged(t *testing.T) {
	srv := remotetest.New(t)
	srv.Fail(http.MethodGet, "/regions", http.StatusUnauthorized)
	srv.Fail(http.MethodGet, "/sub-regions", http.StatusInternalServerError)
	api := srv.API()

	_, err := api.ListRegions(context.Background())
	var fe *remote.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, remote.ResourceParents, fe.Resource)

	_, err = api.ListSubRegions(context.Background())
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, remote.ResourceChildren, fe.Resource)

	_, err = api.GetDepot(context.Background(), 99)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, remote.ResourceDepot, fe.Resource)
}

func TestGetDepot_Normalizes(t *testing.T) {
	srv := remotetest.NewSeeded(t)

	d, err := srv.API().GetDepot(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, remote.Depot{
		ID:          7,
		Name:        "Depot Cikarang",
		ParentID:    1,
		ChildID:     11,
		DateCreated: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
	}, d)
}

func TestCreateAndUpdateDepot_SendIntegerIDs(t *testing.T) {
	srv := remotetest.New(t)
	srv.Respond(http.MethodPost, "/depots", http.StatusCreated, `{"data":{"id":8}}`)
	srv.Respond(http.MethodPut, "/depots/8", http.StatusOK, `{"data":{"id":8}}`)
	api := srv.API()

	status, err := api.CreateDepot(context.Background(), remote.DepotWrite{Name: "D1", RegionID: 1, SubRegionID: 10})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"name":"D1","region_id":1,"sub_region_id":10}`, string(srv.LastBody(http.MethodPost, "/depots")))

	status, err = api.UpdateDepot(context.Background(), 8, remote.DepotWrite{Name: "D2", RegionID: 2, SubRegionID: 20})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(srv.LastBody(http.MethodPut, "/depots/8"), &body))
	assert.Equal(t, float64(20), body["sub_region_id"])
}

func TestGetProduct_OptionalFields(t *testing.T) {
	srv := remotetest.NewSeeded(t)

	p, err := srv.API().GetProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "OPC 50kg", p.Name)
	assert.Empty(t, p.Description)
	assert.Equal(t, "Cement", p.Category)
	require.True(t, p.Price.Valid)
	assert.Equal(t, "65000", p.Price.Decimal.String())
	require.NotNil(t, p.Stock)
	assert.Equal(t, int64(120), *p.Stock)
}
