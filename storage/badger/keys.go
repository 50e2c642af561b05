package badger

import (
	"fmt"

	"github.com/poiesic/docpipe/core"
)

// Key prefixes for different data types
const (
	pipelinePrefix      = "pipln"
	contentPrefix       = "conrec"
	operationPrefix     = "oper"
	cachePrefix         = "embcac"
	memoryRecordPrefix  = "memrec"
	memoryPipelineIndex = "memrecp"
)

// makePipelineKey generates a key for a pipeline record by ID.
func makePipelineKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", pipelinePrefix, id))
}

// makeContentKey generates a key for a content record by ID.
func makeContentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", contentPrefix, id))
}

// makeOperationKey generates a key for a queued operation by ID.
func makeOperationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", operationPrefix, id))
}

// makePoisonKey generates a key for a poisoned operation. The poison queue
// name is the operation prefix plus a configurable suffix.
func makePoisonKey(suffix, id string) []byte {
	return []byte(fmt.Sprintf("%s-%s:%s", operationPrefix, suffix, id))
}

// poisonQueuePrefix returns the key prefix of the poison queue.
func poisonQueuePrefix(suffix string) []byte {
	return []byte(fmt.Sprintf("%s-%s:", operationPrefix, suffix))
}

// makeCacheKey generates a key for a cached embedding.
func makeCacheKey(key core.CacheKey) []byte {
	return []byte(fmt.Sprintf("%s:%d", cachePrefix, uint64(key)))
}

// makeMemoryRecordKey generates a key for a memory record within an index.
// Format: prefix:index:id
func makeMemoryRecordKey(index, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", memoryRecordPrefix, index, id))
}

// memoryIndexPrefix returns the key prefix holding all records of one index.
func memoryIndexPrefix(index string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", memoryRecordPrefix, index))
}

// makeMemoryPipelineKey generates a composite index key for lookup of records
// by the pipeline that saved them.
// Format: prefix:index:pipelineID:id
func makeMemoryPipelineKey(index, pipelineID, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", memoryPipelineIndex, index, pipelineID, id))
}

// memoryPipelinePrefix returns the key prefix of one pipeline's records
// within an index.
func memoryPipelinePrefix(index, pipelineID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", memoryPipelineIndex, index, pipelineID))
}
