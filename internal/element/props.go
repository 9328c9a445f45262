package element

import (
	"github.com/cespare/xxhash/v2"
)

// Props carries host attributes or component inputs. Values are compared with
// ObjectIs, so reference-typed values (maps, slices, funcs) compare by
// identity: replacing a slice with an equal-but-distinct slice counts as a
// change.
type Props map[string]any

// Equal reports whether p and q hold the same keys with ObjectIs-identical
// values. Both nil and empty compare equal.
func (p Props) Equal(q Props) bool {
	if len(p) != len(q) {
		return false
	}
	for k, v := range p {
		qv, ok := q[k]
		if !ok || !ObjectIs(v, qv) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Fingerprint hashes the canonical JSON form of p. Hosts use it as a cheap
// prepare-update fast path: equal fingerprints skip the per-key diff. Props
// holding values that cannot canonicalize (funcs, host handles) fall back to
// 0, which never matches and forces the full diff.
func (p Props) Fingerprint() uint64 {
	if len(p) == 0 {
		return emptyPropsFingerprint
	}
	b, err := MarshalCanonical(p)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

var emptyPropsFingerprint = xxhash.Sum64([]byte("{}"))
