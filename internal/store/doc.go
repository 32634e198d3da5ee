// Package store persists shows and recordings in SQLite.
//
// The live job set held by the scheduler is reconstructible entirely from
// the shows table; nothing about a registration is persisted separately.
// Recordings carry a derived, nullable expires_at; NULL means the recording
// never expires and is invisible to the retention sweep query.
package store
