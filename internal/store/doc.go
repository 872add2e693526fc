// Package store persists task queues in SQLite and exposes the operations
// workers use to claim and finish work.
//
// The Store manages database connections, schema migrations, and the three
// persisted entities: queues, tasks, and journal entries. Checkout is the
// only guarded transition; a pending task is claimed with a conditional
// update inside a write transaction so that at most one worker ever owns it,
// even when several processes share the database file. Complete, reset, and
// fail are idempotent and last-writer-wins.
//
// Journal entries are caller-driven observations, not transitions: they
// accept any of the four task status values regardless of the task's
// current status.
//
// Treat this package as the single source of truth for queue semantics;
// schema changes are added as new files under migrations/.
package store
