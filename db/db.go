// Package db defines the uniform contract every vulnerability source client
// satisfies, letting callers hold either source behind one interface.
package db

import "vulnquery/types"

// Database is the three-operation contract shared by the source clients.
// Each call is independently cached and independently rate-governed per that
// source's own policy; no operation is batchable.
type Database interface {
	// Query returns all known vulnerabilities affecting the package at the
	// given version.
	Query(pkg, version string) ([]types.CveRecord, error)

	// GetByID looks up a single vulnerability by its identifier. A missing
	// identifier yields (nil, nil), not an error.
	GetByID(id string) (*types.CveRecord, error)

	// ClearCache removes this source's cached query results.
	ClearCache() error
}
