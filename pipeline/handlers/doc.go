// Package handlers implements the built-in pipeline steps: extract,
// partition, gen_embeddings, save_records, and the delete_document /
// delete_index cleanup steps.
//
// Every handler is idempotent through artifact presence: the generated-file
// map on the pipeline records what already landed, and a retry skips it.
package handlers
