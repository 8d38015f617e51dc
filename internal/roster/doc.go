// Package roster reconciles inbound agent reports against the store.
//
// A Tracker turns host descriptions into session records and task payloads
// into task records:
//
//   - HandleSession derives the session uid when it is absent, creates the
//     record on first contact and counts a reconnect otherwise
//   - HandleTask issues a task when no uid is given and records a result
//     when one is
//   - SetStatus flips a session online or offline by uid or row id
//
// Every operation for one uid is serialized by a keyed mutex held for the
// duration of the store call. The store additionally runs each call in its
// own transaction, so concurrent reconnects never lose an increment.
//
// Payloads arrive as decoded mappings. DecodeHostInfo and DecodeTaskPayload
// validate field types and return *InvalidInputError before any write.
package roster
