// Package mediastore provides thin read/write access to media records in the
// shared Postgres database.
//
// It is deliberately pass-through CRUD: the worker fetches a record, resolves
// its storage reference, and later writes the extracted duration in a single
// atomic statement. Zero-row duration writes surface as ErrRecordVanished so
// races with deletion fail loudly instead of being silently dropped.
package mediastore
