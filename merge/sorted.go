// Package merge implements the merge-sorted combination of two tables:
// given two tables already ascending-sorted on a shared key, it produces
// their stable ascending merge without re-sorting. Ties prefer the left
// input. Inputs are never mutated; the merged table is freshly allocated.
package merge

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"colmerge/table"
)

// Errors
var (
	ErrSchemaMismatch           = errors.New("table schemas do not match")
	ErrKeyTypeMismatch          = errors.New("merge key types do not match")
	ErrIncompatibleDictionaries = errors.New("incompatible categorical dictionaries")
	ErrStructOuterNull          = errors.New("merge sorted with structs with outer nulls not supported")
)

// Options configures a merge-sorted operation
type Options struct {
	// Parallelism caps the number of per-column interleaves running
	// concurrently. Values below 2 keep the merge fully sequential.
	// Column results are identical either way; the indicator is computed
	// once and shared read-only.
	Parallelism int
}

// MergeSorted combines two tables pre-sorted ascending on a shared key
// into one sorted table. leftKey and rightKey are the extracted key
// columns; they must share a data type and have one value per row of
// their table. When checkSchema is set, both tables must also have
// identical column names and types in identical order.
//
// An empty side short-circuits: the other table is returned unchanged,
// with no new columns or dictionaries allocated. On any failure no
// partial output is produced.
func MergeSorted(left, right *table.Table, leftKey, rightKey *table.Column, checkSchema bool) (*table.Table, error) {
	return MergeSortedOpts(left, right, leftKey, rightKey, checkSchema, Options{})
}

// MergeSortedOpts is MergeSorted with explicit options
func MergeSortedOpts(left, right *table.Table, leftKey, rightKey *table.Column, checkSchema bool, opts Options) (*table.Table, error) {
	if checkSchema {
		if err := left.SchemaEqual(right); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
	}

	if !leftKey.Type.Equal(rightKey.Type) {
		return nil, fmt.Errorf("%w: %s != %s", ErrKeyTypeMismatch, leftKey.Type, rightKey.Type)
	}
	if leftKey.Type.Kind == table.KindCategorical {
		if !leftKey.Type.Dict.SameSource(rightKey.Type.Dict) {
			return nil, fmt.Errorf("%w: merge keys use dictionaries from different sources", ErrIncompatibleDictionaries)
		}
	}
	if leftKey.Length != left.NumRows() || rightKey.Length != right.NumRows() {
		return nil, fmt.Errorf("%w: key lengths %d/%d vs table heights %d/%d",
			table.ErrLengthMismatch, leftKey.Length, rightKey.Length, left.NumRows(), right.NumRows())
	}
	if left.NumColumns() != right.NumColumns() {
		return nil, fmt.Errorf("%w: %d columns vs %d columns",
			ErrSchemaMismatch, left.NumColumns(), right.NumColumns())
	}

	// One empty side means the other table already is the result.
	if rightKey.Length == 0 {
		return left, nil
	}
	if leftKey.Length == 0 {
		return right, nil
	}

	ind, err := keyIndicator(leftKey, rightKey)
	if err != nil {
		return nil, err
	}

	cols := make([]*table.Column, left.NumColumns())
	if opts.Parallelism > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Parallelism)
		for i := range cols {
			g.Go(func() error {
				merged, err := mergePair(left.Column(i), right.Column(i), ind)
				if err != nil {
					return err
				}
				cols[i] = merged
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range cols {
			if cols[i], err = mergePair(left.Column(i), right.Column(i), ind); err != nil {
				return nil, err
			}
		}
	}

	return table.NewTableNoChecks(left.NumRows()+right.NumRows(), cols), nil
}

// mergePair merges one column pair under the shared indicator: convert to
// physical representation, reconcile dictionaries for categorical pairs,
// interleave, then relabel the result back to the logical type in one
// unchecked step. The merged column keeps the left column's name.
func mergePair(l, r *table.Column, ind []bool) (*table.Column, error) {
	outType := l.Type
	lphys := l.ToPhysical()
	rphys := r.ToPhysical()

	if l.Type.Kind == table.KindCategorical && r.Type.Kind == table.KindCategorical {
		merged, remap, err := reconcileDictionaries(l.Type.Dict, r.Type.Dict)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", l.Name, err)
		}
		if merged != nil {
			outType = table.Categorical(merged, l.Type.Lexical)
		}
		if remap != nil {
			rphys = &table.Column{
				Name:     rphys.Name,
				Type:     rphys.Type,
				Data:     remapCodes(rphys.Data.([]uint32), remap),
				Validity: rphys.Validity,
				Length:   rphys.Length,
			}
		}
	}

	out, err := mergeColumn(lphys, rphys, ind)
	if err != nil {
		return nil, err
	}
	return out.FromPhysicalUnchecked(outType).Rename(l.Name), nil
}
