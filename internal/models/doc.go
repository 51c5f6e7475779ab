// Package models defines the entities shared between the task list, the engine boundary and the terminal UI.
//
// The package contains three categories of types:
//
// 1. Engine-owned entities, fetched and never mutated locally
//   - [DownloadItem] : A download task with its metadata and [DownloadStatus]
//   - [Page] : One page of tasks plus the total count for the active [DownloadFilter]
//
// 2. Push-only samples
//   - [DownloadProgress] : The latest cur/total/speed sample for a task id
//
// 3. Process-wide state
//   - [Preferences] : The single preference record, updated only through [Preferences.Merge]
//     with a partial [PreferencesUpdate]
package models
