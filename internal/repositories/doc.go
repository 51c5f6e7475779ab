// Package repositories implements SQLite persistence for the development engine.
//
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [DownloadRepository] : Download tasks with filtered, newest-first pagination
//   - [LogRepository] : Append-only per-task log lines rendered as the task's log text
package repositories
