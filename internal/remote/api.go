// Package remote holds the typed calls against the business API and the
// normalization of its nested record shapes into the flat internal model.
package remote

import (
	"context"
	"strconv"
)

// Transport is what the API needs from the HTTP gateway.
type Transport interface {
	Get(ctx context.Context, path string, out any) (int, error)
	Post(ctx context.Context, path string, body, out any) (int, error)
	Put(ctx context.Context, path string, body, out any) (int, error)
}

type API struct {
	t Transport
}

func New(t Transport) *API {
	return &API{t: t}
}

func (a *API) ListRegions(ctx context.Context) ([]Region, error) {
	var out []Region
	if _, err := a.t.Get(ctx, "/regions", &out); err != nil {
		return nil, &FetchError{Resource: ResourceParents, Err: err}
	}
	if out == nil {
		out = []Region{}
	}
	return out, nil
}

func (a *API) ListSubRegions(ctx context.Context) ([]SubRegion, error) {
	var raw []subRegionRecord
	if _, err := a.t.Get(ctx, "/sub-regions", &raw); err != nil {
		return nil, &FetchError{Resource: ResourceChildren, Err: err}
	}
	out := make([]SubRegion, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.normalize())
	}
	return out, nil
}

func (a *API) GetDepot(ctx context.Context, id int64) (Depot, error) {
	var raw depotRecord
	if _, err := a.t.Get(ctx, depotPath(id), &raw); err != nil {
		return Depot{}, &FetchError{Resource: ResourceDepot, Err: err}
	}
	return raw.normalize(), nil
}

// CreateDepot returns the remote status code so callers can apply their own
// success rule.
func (a *API) CreateDepot(ctx context.Context, in DepotWrite) (int, error) {
	return a.t.Post(ctx, "/depots", in, nil)
}

func (a *API) UpdateDepot(ctx context.Context, id int64, in DepotWrite) (int, error) {
	return a.t.Put(ctx, depotPath(id), in, nil)
}

func (a *API) GetProduct(ctx context.Context, id int64) (Product, error) {
	var raw productRecord
	if _, err := a.t.Get(ctx, "/products/"+strconv.FormatInt(id, 10), &raw); err != nil {
		return Product{}, &FetchError{Resource: ResourceProduct, Err: err}
	}
	return raw.normalize(), nil
}

func depotPath(id int64) string {
	return "/depots/" + strconv.FormatInt(id, 10)
}
