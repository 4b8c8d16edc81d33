// Package nav names the routes screens ask the front end to navigate to.
package nav

const (
	DepotList   = "depots.list"
	ProductList = "products.list"
)
