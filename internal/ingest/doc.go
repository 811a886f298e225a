// Package ingest turns uploaded spreadsheets into session records.
//
// Readers accept CSV and XLSX workbooks and yield header-keyed rows. Candidate
// resolves historical header spellings to logical fields and derives a stable
// session identifier. Merge folds a batch into the existing collection without
// touching protected fields, and Ingester applies the outcome to the store.
package ingest
