// Package migrate rewrites stored documents in bulk.
//
// A Migrator walks every document matching a filter in _id order, a batch at
// a time, and applies an update document to each one. Progress is logged as
// structured records and failed updates are retried with exponential backoff.
package migrate
