// Package audit keeps a journal of executed rule actions in SQLite.
//
// Recorder observes the dispatcher and writes one row per action. The
// status API reads the journal back through Repository.List.
package audit
