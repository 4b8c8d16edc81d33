// Package refdata loads the region and sub-region collections behind the
// depot forms.
package refdata

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"cementops/admin/internal/remote"
)

type Source interface {
	ListRegions(ctx context.Context) ([]remote.Region, error)
	ListSubRegions(ctx context.Context) ([]remote.SubRegion, error)
}

// Result carries whatever loaded. A failed collection is nil and has a
// matching entry in Errors.
type Result struct {
	Parents  []remote.Region
	Children []remote.SubRegion
	Errors   []*remote.FetchError
}

// Err joins the per-collection errors, nil when both loaded.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Failed reports whether the given resource tag failed to load.
func (r Result) Failed(resource string) bool {
	for _, e := range r.Errors {
		if e.Resource == resource {
			return true
		}
	}
	return false
}

type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load fetches both collections concurrently. One collection failing does not
// cancel or discard the other.
func (l *Loader) Load(ctx context.Context) Result {
	var (
		res Result
		mu  sync.Mutex
	)
	fail := func(resource string, err error) {
		fe := asFetchError(resource, err)
		mu.Lock()
		res.Errors = append(res.Errors, fe)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		parents, err := l.src.ListRegions(ctx)
		if err != nil {
			fail(remote.ResourceParents, err)
			return nil
		}
		mu.Lock()
		res.Parents = parents
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		children, err := l.src.ListSubRegions(ctx)
		if err != nil {
			fail(remote.ResourceChildren, err)
			return nil
		}
		mu.Lock()
		res.Children = children
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	// Stable order for callers that render the errors.
	if len(res.Errors) == 2 && res.Errors[0].Resource != remote.ResourceParents {
		res.Errors[0], res.Errors[1] = res.Errors[1], res.Errors[0]
	}
	return res
}

func asFetchError(resource string, err error) *remote.FetchError {
	var fe *remote.FetchError
	if errors.As(err, &fe) && fe.Resource == resource {
		return fe
	}
	return &remote.FetchError{Resource: resource, Err: err}
}
