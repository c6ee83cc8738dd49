package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// karte does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input is structurally
// unusable (e.g. an id supplied on create, a malformed import grid).
// Field contents are never validated: a karte is a free-form worksheet.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")
