// Package binlog implements log-based change data capture from the MySQL
// binary log.
//
// A run is a bounded catch-up: it captures events from the tracked streams'
// resume position up to the master position observed at start, then exits.
// Further capture needs a new run.
//
// Prerequisites on the server:
//   - binlog enabled (`--log-bin=xxxx`, `--server-id=xxx`)
//   - `--binlog-format=ROW`: row changes instead of statements
//   - `--binlog-row-image=FULL`: before and after image of row changes
//   - `--binlog-row-metadata=FULL` (MySQL 8.0.1+): column names and
//     signedness in the table map events
//
// The preflight checks enforce the first three; the event source rejects
// streams without column names, which covers the last.
package binlog
