package refdata

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cementops/admin/internal/remote"
)

type DepotSource interface {
	Source
	GetDepot(ctx context.Context, id int64) (remote.Depot, error)
}

// DepotData is everything the edit and view screens need before first render.
type DepotData struct {
	Depot    remote.Depot
	Parents  []remote.Region
	Children []remote.SubRegion
}

// LoadDepot fetches the depot and both collections concurrently. Unlike Load,
// any failure fails the whole load: the first error is returned, the other
// requests are cancelled and no partial data is handed out.
func LoadDepot(ctx context.Context, src DepotSource, id int64) (DepotData, error) {
	var data DepotData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := src.GetDepot(gctx, id)
		if err != nil {
			return asFetchError(remote.ResourceDepot, err)
		}
		data.Depot = d
		return nil
	})
	g.Go(func() error {
		parents, err := src.ListRegions(gctx)
		if err != nil {
			return asFetchError(remote.ResourceParents, err)
		}
		data.Parents = parents
		return nil
	})
	g.Go(func() error {
		children, err := src.ListSubRegions(gctx)
		if err != nil {
			return asFetchError(remote.ResourceChildren, err)
		}
		data.Children = children
		return nil
	})
	if err := g.Wait(); err != nil {
		return DepotData{}, err
	}
	return data, nil
}
