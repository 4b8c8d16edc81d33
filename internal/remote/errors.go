package remote

import "fmt"

// Resource tags used on FetchError.
const (
	ResourceParents  = "parents"
	ResourceChildren = "children"
	ResourceDepot    = "depot"
	ResourceProduct  = "product"
)

// FetchError is a failed read of one collection or entity.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
