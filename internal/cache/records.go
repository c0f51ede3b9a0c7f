package cache

import (
	"sort"
	"strings"
)

// maxRecordsPerBucket bounds retention: the table would otherwise grow
// monotonically with every enrichment pass.
const maxRecordsPerBucket = 10

// Bucket canonicalizes a best-effort name into a distance bucket key,
// e.g. "1 mile" -> "1mile", "5k" -> "5k".
func Bucket(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// Insert adds a personal-best effort under the given activity type and
// distance bucket and re-sorts the bucket. Running buckets are ordered
// ascending by elapsed time (fastest first); riding buckets descending by
// distance, breaking ties by speed (longest, then fastest, first).
// Duplicates across activities are permitted; retention is capped.
func (t RecordTable) Insert(activityType, bucket string, r Record) {
	byBucket, ok := t[activityType]
	if !ok {
		byBucket = make(map[string][]Record)
		t[activityType] = byBucket
	}

	records := append(byBucket[bucket], r)
	if activityType == "Ride" {
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Distance != records[j].Distance {
				return records[i].Distance > records[j].Distance
			}
			return speed(records[i]) > speed(records[j])
		})
	} else {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Time < records[j].Time
		})
	}
	if len(records) > maxRecordsPerBucket {
		records = records[:maxRecordsPerBucket]
	}
	byBucket[bucket] = records
}

// Best returns the top record of a bucket, if any.
func (t RecordTable) Best(activityType, bucket string) (Record, bool) {
	records := t[activityType][bucket]
	if len(records) == 0 {
		return Record{}, false
	}
	return records[0], true
}

func speed(r Record) float64 {
	if r.Time <= 0 {
		return 0
	}
	return r.Distance / float64(r.Time)
}
