// Package retention computes recording expirations and sweeps expired ones.
//
// Expiry is derived state: each recording's expires_at comes from its owning
// show's default policy, or from the recording's own override when present.
// NULL means never, which is how playlist uploads are conventionally
// protected; the sweeper applies one uniform rule and has no special case
// for uploads. Deletion is file-first so a failed file removal can never
// orphan an untracked file on disk.
package retention
