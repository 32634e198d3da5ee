// Package scheduler keeps one live cron job per active scheduled show and
// fires bounded captures at each occurrence.
//
// # Registry model
//
// The live job set is a pure function of persisted show rows. Register reads
// the row and upserts the registration keyed by show id; Unregister removes
// it; Reconcile (unregister + register) is what the editing surface calls
// after every write, which makes the set self-healing: a crash is recovered
// by ResyncAll at startup, not by replaying scheduler memory.
//
// A show moves only between two states, unregistered and registered. There
// is no paused state: deactivating a show removes its registration entirely.
//
// # Firing
//
// At fire time the cron entry hands an independent run to a dispatcher,
// which starts one goroutine per run, so the timer loop never blocks on
// capture work and simultaneous firings record concurrently rather than
// queueing behind one another. Runs are never coalesced or dropped: when
// the handoff buffer is full the capture is started directly. Each run
// captures under a context deadline of the show's duration, then inserts
// the recording row
// using the retention policy persisted at completion time. Fire times come
// from the cron expression alone; capture outcomes never shift them.
package scheduler
