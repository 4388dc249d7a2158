package api

import "github.com/dynaforms/dynaforms/internal/services"

// Store is the full persistence surface the HTTP layer wires into the
// services. Implementations: the in-memory store below (default, tests) and
// the sqlite store in internal/db.
type Store interface {
	services.FormStore
	services.ResponseStore
	services.AuthStore
}

var _ Store = (*memoryStore)(nil)
