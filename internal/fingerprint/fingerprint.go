// Package fingerprint derives deterministic digests from the answers and
// options structures of an integration. Two structures produce the same
// digest exactly when they are semantically identical: step order is
// significant, key order within a single step mapping is not.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Steps computes the digest of an ordered sequence of step mappings.
// A nil or empty sequence has a stable, well-defined digest so "no
// options" compares equal across passes and restarts.
func Steps(steps []map[string]any) digest.Digest {
	var b strings.Builder
	b.WriteByte('[')
	for i, step := range steps {
		if i > 0 {
			b.WriteByte(',')
		}
		writeMapping(&b, step)
	}
	b.WriteByte(']')
	return digest.FromString(b.String())
}

func writeMapping(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, k)
		b.WriteByte(':')
		writeValue(b, m[k])
	}
	b.WriteByte('}')
}

func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		writeMapping(b, val)
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	case string:
		writeString(b, val)
	default:
		// Scalars (bool, ints, floats) have a canonical JSON rendering.
		data, err := json.Marshal(val)
		if err != nil {
			// Unencodable values still need a deterministic contribution.
			writeString(b, fmt.Sprintf("%T:%v", val, val))
			return
		}
		b.Write(data)
	}
}

func writeString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}
