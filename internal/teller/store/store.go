// Package store defines the persistence contracts for the teller core.
// Each interface has a sqlite implementation for production and a memory
// implementation for tests and dev.
//
// Stores are deliberately dumb: each method is an individually atomic read
// or write, and the service layer's per-entity locks provide the
// serialization that makes multi-step operations safe.
package store

import "errors"

// ErrNotFound is returned by lookups for rows that do not exist.
// Implementations wrap it with the entity and id for context.
var ErrNotFound = errors.New("not found")
