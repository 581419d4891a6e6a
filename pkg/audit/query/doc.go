// Package query validates audit queries before they reach a storage backend.
package query
