package merge

import (
	"fmt"

	"colmerge/dict"
)

// reconcileDictionaries validates and merges the dictionaries of two
// categorical columns being merged.
//
// Local pairs must share a content identity; codes are then already
// comparable and no new dictionary is produced. Global pairs from one
// namespace merge into a new union dictionary with a remap for right-side
// codes; a nil remap means the right codes are already valid as-is. A
// local paired with a global cannot occur once the key dtype check has
// passed, so that case is an internal invariant violation, not an input
// error.
func reconcileDictionaries(left, right *dict.Dictionary) (*dict.Dictionary, []uint32, error) {
	switch {
	case left.Origin() == dict.OriginLocal && right.Origin() == dict.OriginLocal:
		if left.Hash() != right.Hash() {
			return nil, nil, fmt.Errorf("%w: local dictionaries have different contents", ErrIncompatibleDictionaries)
		}
		return nil, nil, nil

	case left.Origin() == dict.OriginGlobal && right.Origin() == dict.OriginGlobal:
		if left.Namespace() != right.Namespace() {
			return nil, nil, fmt.Errorf("%w: global dictionaries from namespaces %d and %d",
				ErrIncompatibleDictionaries, left.Namespace(), right.Namespace())
		}
		merged, remap, err := dict.Merge(left, right)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrIncompatibleDictionaries, err)
		}
		if merged == left {
			// Right side contributed nothing new; keep the original.
			return nil, nil, nil
		}
		return merged, remap, nil

	default:
		panic("merge: local and global dictionary paired after dtype check")
	}
}

// remapCodes rewrites codes through remap into a fresh slice; the input
// stays untouched.
func remapCodes(codes []uint32, remap []uint32) []uint32 {
	out := make([]uint32, len(codes))
	for i, c := range codes {
		out[i] = remap[c]
	}
	return out
}
