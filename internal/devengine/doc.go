// Package devengine is a development download engine backed by SQLite.
//
// It fulfils every engine command and emits the same push events as a real engine, so the terminal UI and the CLI
// can be exercised end to end. Starting a task probes its HLS manifest to learn the segment count and whether the
// source is live, then advances a simulated transfer one tick at a time. No segments are fetched and no files are
// written.
package devengine
