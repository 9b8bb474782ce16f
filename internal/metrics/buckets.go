package metrics

import (
	"github.com/google/btree"

	"github.com/veles-markets/console/internal/amount"
)

// TimeBucket is one calendar day of trade activity.
type TimeBucket struct {
	Date   string
	Count  int
	Volume amount.Amount
}

// lessByDate orders buckets ascending by their YYYY-MM-DD key, which
// sorts correctly as a plain string comparison.
func lessByDate(a, b TimeBucket) bool {
	return a.Date < b.Date
}

// dayBuckets keeps buckets in a btree keyed by date so ascending
// iteration falls out of the tree.
type dayBuckets struct {
	tree *btree.BTreeG[TimeBucket]
}

func newDayBuckets() *dayBuckets {
	return &dayBuckets{tree: btree.NewG(8, lessByDate)}
}

// add folds one trade into its day bucket.
func (d *dayBuckets) add(date string, volume amount.Amount) {
	bucket, ok := d.tree.Get(TimeBucket{Date: date})
	if !ok {
		bucket = TimeBucket{Date: date}
	}
	bucket.Count++
	bucket.Volume += volume
	d.tree.ReplaceOrInsert(bucket)
}

// ascending returns every bucket, oldest day first.
func (d *dayBuckets) ascending() []TimeBucket {
	out := make([]TimeBucket, 0, d.tree.Len())
	d.tree.Ascend(func(b TimeBucket) bool {
		out = append(out, b)
		return true
	})
	return out
}
