package extractor

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// contentHash produces File.hash: a stable content digest used by the
// pipeline to detect unchanged files across re-ingestions.
func contentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}
