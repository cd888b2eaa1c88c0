// Package sqlite keeps the question/answer history in a single append-only
// table at ~/.researchbot/data/history.db. It uses the pure Go
// modernc.org/sqlite driver, so the binary needs no CGO, and upgrades the
// schema from the embedded migrations on open.
package sqlite
