// Package catalog defines the record types stored in the picklight data
// directory: master data (racks, drawers, parts and their lookup entities),
// the append-only movement ledger records, and the derived index documents.
//
// Every type carries a Validate method that checks structural rules local to
// the record itself (non-empty ids, legal enum values, sane pixel ranges).
// Cross-record rules such as pixel-range overlap or referential integrity
// are enforced by the master repository, not here.
package catalog
