// Package search ranks saved memory records against natural-language
// queries: the query is embedded, the index scanned by vector similarity,
// tag filters applied, and verbatim word matches boosted.
package search
