package cache

import "strings"

const prefix = "langganan:"

// KeyProductList is the cache key of the unfiltered first page of products.
func KeyProductList() string {
	return prefix + "catalog:products:list"
}

// KeyProduct returns the cache key of a product detail by slug.
func KeyProduct(slug string) string {
	return prefix + "catalog:product:" + strings.ToLower(strings.TrimSpace(slug))
}

// KeyPlans returns the cache key of a product's normalized plans.
func KeyPlans(productID string) string {
	return prefix + "plans:" + strings.ToLower(strings.TrimSpace(productID))
}

// KeyPlansLock returns the lock key guarding a product's vendor fetch.
func KeyPlansLock(productID string) string {
	return KeyPlans(productID) + ":lock"
}

// KeyBundle returns the cache key of a bundle detail.
func KeyBundle(id string) string {
	return prefix + "bundle:" + strings.TrimSpace(id)
}

// KeyBundleList is the cache key of the bundle listing.
func KeyBundleList() string {
	return prefix + "bundles:list"
}
