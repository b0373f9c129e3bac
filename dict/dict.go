// Package dict provides the shared dictionaries backing categorical columns.
//
// A dictionary is an immutable mapping from uint32 codes to strings. Local
// dictionaries are private to one column instance and identified by a
// content hash; global dictionaries belong to a process-wide namespace and
// can be merged with any other dictionary from the same namespace.
package dict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Errors
var (
	ErrIncompatible = errors.New("incompatible dictionaries")
	ErrCodeRange    = errors.New("code out of dictionary range")
)

// Origin identifies where a dictionary's code space comes from
type Origin uint8

const (
	// OriginLocal codes are meaningful only within one column instance
	OriginLocal Origin = iota

	// OriginGlobal codes are drawn from a shared namespace and can be
	// merged across columns of that namespace
	OriginGlobal
)

// String returns the string representation of an origin
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Dictionary maps uint32 codes to strings. Dictionaries are immutable value
// objects: once constructed they are never modified, so they can be shared
// between columns freely. Identity is compared by content hash for local
// dictionaries and by namespace id for global ones.
type Dictionary struct {
	origin    Origin
	values    []string
	index     map[string]uint32
	hash      uint64
	namespace uint32
}

var namespaceCounter atomic.Uint32

// NewNamespace allocates a fresh global namespace id. All global
// dictionaries built for the same logical value universe must share one
// namespace id to be mergeable.
func NewNamespace() uint32 {
	return namespaceCounter.Add(1)
}

// NewLocal builds a local dictionary from values. The identity hash covers
// the full content, so two local dictionaries with identical entries in
// identical order compare as the same source.
func NewLocal(values []string) *Dictionary {
	return &Dictionary{
		origin: OriginLocal,
		values: cloneValues(values),
		index:  buildIndex(values),
		hash:   contentHash(values),
	}
}

// NewGlobal builds a global dictionary in the given namespace
func NewGlobal(namespace uint32, values []string) *Dictionary {
	return &Dictionary{
		origin:    OriginGlobal,
		values:    cloneValues(values),
		index:     buildIndex(values),
		namespace: namespace,
	}
}

// Origin returns the dictionary's origin
func (d *Dictionary) Origin() Origin {
	return d.origin
}

// Len returns the number of entries
func (d *Dictionary) Len() int {
	return len(d.values)
}

// Namespace returns the namespace id of a global dictionary, 0 for local
func (d *Dictionary) Namespace() uint32 {
	if d.origin != OriginGlobal {
		return 0
	}
	return d.namespace
}

// Hash returns the content identity hash of a local dictionary, 0 for global
func (d *Dictionary) Hash() uint64 {
	if d.origin != OriginLocal {
		return 0
	}
	return d.hash
}

// Value decodes one code
func (d *Dictionary) Value(code uint32) (string, error) {
	if int(code) >= len(d.values) {
		return "", fmt.Errorf("%w: code %d, dictionary size %d", ErrCodeRange, code, len(d.values))
	}
	return d.values[code], nil
}

// Values returns the entries in code order. The returned slice is shared
// and must not be modified.
func (d *Dictionary) Values() []string {
	return d.values
}

// Code returns the code for a value, if present
func (d *Dictionary) Code(value string) (uint32, bool) {
	code, ok := d.index[value]
	return code, ok
}

// SameSource reports whether two dictionaries share a code space: local
// dictionaries with equal content hashes, or global dictionaries from the
// same namespace. Mixed origins never share a source.
func (d *Dictionary) SameSource(other *Dictionary) bool {
	if d.origin != other.origin {
		return false
	}
	if d.origin == OriginLocal {
		return d.hash == other.hash
	}
	return d.namespace == other.namespace
}

// Merge combines two global dictionaries from the same namespace into a new
// dictionary covering the union of their entries. Left codes stay valid in
// the merged dictionary; the returned remap translates right codes into the
// merged code space. When the right side contributes nothing new and its
// codes already agree with the left, Merge returns the left dictionary
// itself with a nil remap so callers can skip reallocation. Neither input
// is modified.
func Merge(left, right *Dictionary) (*Dictionary, []uint32, error) {
	if left.origin != OriginGlobal || right.origin != OriginGlobal {
		return nil, nil, fmt.Errorf("%w: merge requires two global dictionaries, got %s and %s",
			ErrIncompatible, left.origin, right.origin)
	}
	if left.namespace != right.namespace {
		return nil, nil, fmt.Errorf("%w: namespaces %d and %d differ",
			ErrIncompatible, left.namespace, right.namespace)
	}

	remap := make([]uint32, len(right.values))
	identity := true
	var extra []string
	next := uint32(len(left.values))
	for code, v := range right.values {
		if lcode, ok := left.index[v]; ok {
			remap[code] = lcode
			if lcode != uint32(code) {
				identity = false
			}
			continue
		}
		remap[code] = next
		extra = append(extra, v)
		next++
		identity = false
	}

	if identity && len(extra) == 0 {
		return left, nil, nil
	}

	values := make([]string, 0, len(left.values)+len(extra))
	values = append(values, left.values...)
	values = append(values, extra...)
	return &Dictionary{
		origin:    OriginGlobal,
		values:    values,
		index:     buildIndex(values),
		namespace: left.namespace,
	}, remap, nil
}

func cloneValues(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func buildIndex(values []string) map[string]uint32 {
	index := make(map[string]uint32, len(values))
	for i, v := range values {
		if _, ok := index[v]; !ok {
			index[v] = uint32(i)
		}
	}
	return index
}

// contentHash hashes the entries with length framing so ["ab","c"] and
// ["a","bc"] do not collide.
func contentHash(values []string) uint64 {
	h := xxhash.New()
	var frame [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(frame[:], uint64(len(v)))
		h.Write(frame[:])
		h.WriteString(v)
	}
	return h.Sum64()
}
