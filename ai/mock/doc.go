// Package mock provides deterministic test doubles for the ai interfaces.
// Vectors are derived from an FNV hash of the input text, so the same text
// always embeds to the same vector without any external service.
package mock
