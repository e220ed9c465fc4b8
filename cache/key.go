package cache

import (
	"encoding/json"
	"hash/fnv"
	"strconv"

	"github.com/schemaguard/validator/pool"
)

// maxInlineValue is the largest serialized value embedded verbatim in a
// cache key. Larger payloads are summarized by length and hash so key memory
// stays bounded no matter what is validated.
const maxInlineValue = 256

// keySep separates key sections. It cannot appear in a schema signature and
// is escaped by JSON serialization, so sections never collide.
const keySep = 0x1f

// Key builds a deterministic cache key from a schema signature, the strict
// flag, and the value being validated. The second return is false when the
// value cannot be serialized (channels, funcs, cycles); such values are not
// cacheable.
func Key(schemaSig string, strict bool, value any) (string, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", false
	}

	buf := pool.AcquireByteSlice()
	b := *buf
	b = append(b, schemaSig...)
	b = append(b, keySep)
	if strict {
		b = append(b, '1')
	} else {
		b = append(b, '0')
	}
	b = append(b, keySep)

	if len(raw) <= maxInlineValue {
		b = append(b, raw...)
	} else {
		h := fnv.New64a()
		h.Write(raw)
		b = strconv.AppendInt(b, int64(len(raw)), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, h.Sum64(), 16)
	}

	key := string(b)
	*buf = b[:0]
	pool.ReleaseByteSlice(buf)
	return key, true
}
