// Package repository implements persistence for users, events,
// attendance records and invoices on top of database/sql.  Sentinel
// errors defined here and alongside each repository let handlers map
// failure modes to HTTP statuses without inspecting driver errors.
package repository

import "errors"

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state surfaced by the store, such
// as a duplicate unique value. Handlers translate this into an HTTP
// 409 response.
var ErrConflict = errors.New("conflict")
