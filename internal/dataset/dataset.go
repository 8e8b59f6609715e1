// Package dataset implements the parallel record set the pipeline's stages
// operate on.
//
// A Dataset is an unordered collection of records.Record split into
// partitions. Operators (Filter, Map, DistinctByKey, Distinct, Join,
// AssignIDs) apply per partition, in parallel, under an explicit execution
// Context whose lifetime is one pipeline run. Keyed operators first shuffle
// records across partitions by key hash, so correctness never depends on
// which partition a record starts in or on processing order within a key
// group.
//
// De-duplication keeps exactly one record per key; which duplicate survives
// is unspecified. It depends on input file enumeration order and partition
// assignment. Callers that need a deterministic survivor must sort upstream;
// none of the pipeline's tables ask for that.
package dataset

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"starlake/pkg/records"
)

// Context carries the execution settings for one pipeline run. It bounds the
// number of goroutines any single operator may use.
type Context struct {
	Workers int
}

// NewContext returns a Context with the given worker count; values < 1 fall
// back to GOMAXPROCS-style parallelism.
func NewContext(workers int) *Context {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Context{Workers: workers}
}

// Dataset is a partitioned, unordered set of records.
type Dataset struct {
	parts [][]records.Record
}

// FromPartitions builds a Dataset from pre-partitioned records. The typical
// producer is a record source that yields one partition per input file.
func FromPartitions(parts [][]records.Record) *Dataset {
	if len(parts) == 0 {
		parts = [][]records.Record{nil}
	}
	return &Dataset{parts: parts}
}

// FromSlice splits a flat slice into n roughly equal partitions. Used by
// tests and by operators that re-partition.
func FromSlice(recs []records.Record, n int) *Dataset {
	if n < 1 {
		n = 1
	}
	parts := make([][]records.Record, n)
	for i, r := range recs {
		p := i % n
		parts[p] = append(parts[p], r)
	}
	return &Dataset{parts: parts}
}

// Partitions returns the partition count.
func (d *Dataset) Partitions() int { return len(d.parts) }

// Len returns the total number of records across partitions.
func (d *Dataset) Len() int {
	n := 0
	for _, p := range d.parts {
		n += len(p)
	}
	return n
}

// Collect flattens the dataset into a single slice. Order is
// partition-major and carries no meaning.
func (d *Dataset) Collect() []records.Record {
	out := make([]records.Record, 0, d.Len())
	for _, p := range d.parts {
		out = append(out, p...)
	}
	return out
}

// forEachPartition runs fn over every partition with bounded parallelism and
// stores the result slice at the same partition index.
func (d *Dataset) forEachPartition(ec *Context, fn func(in []records.Record) ([]records.Record, error)) (*Dataset, error) {
	out := make([][]records.Record, len(d.parts))
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for i := range d.parts {
		i := i
		g.Go(func() error {
			res, err := fn(d.parts[i])
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Dataset{parts: out}, nil
}

// Filter keeps the records for which keep returns true.
func (d *Dataset) Filter(ec *Context, keep func(records.Record) bool) *Dataset {
	out, _ := d.forEachPartition(ec, func(in []records.Record) ([]records.Record, error) {
		var res []records.Record
		for _, r := range in {
			if keep(r) {
				res = append(res, r)
			}
		}
		return res, nil
	})
	return out
}

// Map applies fn to every record. The first error aborts the whole
// operation; this is how a schema violation on any single record fails an
// extraction outright.
func (d *Dataset) Map(ec *Context, fn func(records.Record) (records.Record, error)) (*Dataset, error) {
	return d.forEachPartition(ec, func(in []records.Record) ([]records.Record, error) {
		res := make([]records.Record, 0, len(in))
		for _, r := range in {
			m, err := fn(r)
			if err != nil {
				return nil, err
			}
			res = append(res, m)
		}
		return res, nil
	})
}

// compositeKey builds the dedup/join key from the named fields. Fields are
// joined with an \x1f separator; nil values encode as \x00. A record missing
// one of the fields yields ok=false.
func compositeKey(r records.Record, keys []string) (string, bool) {
	var b strings.Builder
	for i, k := range keys {
		v, ok := r[k]
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch t := v.(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(t)
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return b.String(), true
}

// shuffle redistributes records into len(d.parts) buckets by key hash. The
// returned slice is indexed by target partition. Records for which keyFn
// reports no key are routed to bucket 0; the pipeline projects records
// before keying them, so in practice every record is keyed.
func (d *Dataset) shuffle(ec *Context, keyFn func(records.Record) (string, bool)) ([][]keyed, error) {
	n := len(d.parts)
	// Per source partition bucket matrix, merged after the parallel phase so
	// no two goroutines share a target slice.
	matrix := make([][][]keyed, n)
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for i := range d.parts {
		i := i
		g.Go(func() error {
			buckets := make([][]keyed, n)
			for _, r := range d.parts[i] {
				k, ok := keyFn(r)
				target := 0
				if ok && n > 1 {
					target = int(xxh3.HashString(k) % uint64(n))
				}
				buckets[target] = append(buckets[target], keyed{key: k, rec: r})
			}
			matrix[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged := make([][]keyed, n)
	for _, buckets := range matrix {
		for t, b := range buckets {
			merged[t] = append(merged[t], b...)
		}
	}
	return merged, nil
}

type keyed struct {
	key string
	rec records.Record
}

// DistinctByKey keeps one record per composite key. The survivor among
// duplicates is unspecified (see the package comment). Records missing a key
// field pass through unchanged.
func (d *Dataset) DistinctByKey(ec *Context, keys ...string) *Dataset {
	var passthrough []records.Record
	keyedDs := d.Filter(ec, func(r records.Record) bool {
		_, ok := compositeKey(r, keys)
		return ok
	})
	if keyedDs.Len() != d.Len() {
		for _, r := range d.Collect() {
			if _, ok := compositeKey(r, keys); !ok {
				passthrough = append(passthrough, r)
			}
		}
	}

	buckets, _ := keyedDs.shuffle(ec, func(r records.Record) (string, bool) {
		return compositeKey(r, keys)
	})

	out := make([][]records.Record, len(buckets))
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for t := range buckets {
		t := t
		g.Go(func() error {
			seen := make(map[string]struct{}, len(buckets[t]))
			var res []records.Record
			for _, kr := range buckets[t] {
				if _, dup := seen[kr.key]; dup {
					continue
				}
				seen[kr.key] = struct{}{}
				res = append(res, kr.rec)
			}
			out[t] = res
			return nil
		})
	}
	g.Wait()
	if len(passthrough) > 0 {
		out = append(out, passthrough)
	}
	return &Dataset{parts: out}
}

// canonical renders a record into a stable byte form: fields sorted by name,
// values printed through fmt. Used for full-row distinct.
func canonical(r records.Record) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\x02')
		switch t := r[k].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(t)
		default:
			b.WriteString(fmt.Sprint(t))
		}
		b.WriteByte('\x1e')
	}
	return b.String()
}

// Distinct removes exact duplicate records (full-row comparison).
func (d *Dataset) Distinct(ec *Context) *Dataset {
	buckets, _ := d.shuffle(ec, func(r records.Record) (string, bool) {
		return canonical(r), true
	})

	out := make([][]records.Record, len(buckets))
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for t := range buckets {
		t := t
		g.Go(func() error {
			seen := make(map[string]struct{}, len(buckets[t]))
			var res []records.Record
			for _, kr := range buckets[t] {
				if _, dup := seen[kr.key]; dup {
					continue
				}
				seen[kr.key] = struct{}{}
				res = append(res, kr.rec)
			}
			out[t] = res
			return nil
		})
	}
	g.Wait()
	return &Dataset{parts: out}
}

// Join performs an inner hash join with the right dataset. Both sides are
// shuffled by composite key; within a key group every left/right pair
// produces one merged record carrying all left fields plus the right fields
// that do not collide with a left field name. Records on either side missing
// a key field are dropped, as are keys present on only one side.
func (d *Dataset) Join(ec *Context, right *Dataset, leftKeys, rightKeys []string) *Dataset {
	n := len(d.parts)
	leftBuckets, _ := (&Dataset{parts: padTo(d.parts, n)}).shuffle(ec, func(r records.Record) (string, bool) {
		return compositeKey(r, leftKeys)
	})
	rightBuckets, _ := (&Dataset{parts: padTo(right.parts, n)}).shuffle(ec, func(r records.Record) (string, bool) {
		return compositeKey(r, rightKeys)
	})

	out := make([][]records.Record, n)
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for t := range out {
		t := t
		g.Go(func() error {
			idx := make(map[string][]records.Record)
			for _, kr := range rightBuckets[t] {
				if _, ok := compositeKey(kr.rec, rightKeys); !ok {
					continue
				}
				idx[kr.key] = append(idx[kr.key], kr.rec)
			}
			var res []records.Record
			for _, kr := range leftBuckets[t] {
				if _, ok := compositeKey(kr.rec, leftKeys); !ok {
					continue
				}
				for _, rr := range idx[kr.key] {
					merged := kr.rec.Clone()
					for k, v := range rr {
						if _, exists := merged[k]; !exists {
							merged[k] = v
						}
					}
					res = append(res, merged)
				}
			}
			out[t] = res
			return nil
		})
	}
	g.Wait()
	return &Dataset{parts: out}
}

// padTo re-partitions parts to exactly n partitions so the two join sides
// shuffle into aligned bucket sets.
func padTo(parts [][]records.Record, n int) [][]records.Record {
	if len(parts) == n {
		return parts
	}
	flat := make([]records.Record, 0)
	for _, p := range parts {
		flat = append(flat, p...)
	}
	return FromSlice(flat, n).parts
}

// AssignIDs sets field on every record to a surrogate key that is unique
// across the dataset and monotonically increasing within a partition:
// partition<<40 | sequence. Keys are opaque; callers must not assume global
// ordering or density.
func (d *Dataset) AssignIDs(ec *Context, field string) *Dataset {
	out := make([][]records.Record, len(d.parts))
	g := new(errgroup.Group)
	g.SetLimit(ec.Workers)
	for p := range d.parts {
		p := p
		g.Go(func() error {
			res := make([]records.Record, len(d.parts[p]))
			for i, r := range d.parts[p] {
				c := r.Clone()
				c[field] = int64(p)<<40 | int64(i)
				res[i] = c
			}
			out[p] = res
			return nil
		})
	}
	g.Wait()
	return &Dataset{parts: out}
}
