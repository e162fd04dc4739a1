package aggregate

import "marketlens/internal/model"

// Bucket names for the date grouping.
const (
	BucketClaim   = "claim"
	BucketBuy     = "buy"
	BucketAuction = "auction"
)

var bucketByName = map[string]string{
	model.NameTokensClaimed: BucketClaim,
	model.NameBuy:           BucketBuy,
	model.NameEndAuction:    BucketAuction,
}

// DateBuckets maps bucket name -> createdAt date string -> events.
type DateBuckets map[string]map[string][]model.PersistedEvent

// BucketByDateAndKind partitions events into the claim/buy/auction buckets
// keyed by their createdAt string. Date strings are compared verbatim;
// events with any other name are dropped.
func BucketByDateAndKind(events []model.PersistedEvent) DateBuckets {
	buckets := DateBuckets{
		BucketClaim:   {},
		BucketBuy:     {},
		BucketAuction: {},
	}

	for _, event := range events {
		bucket, ok := bucketByName[event.Name]
		if !ok {
			continue
		}
		buckets[bucket][event.CreatedAt] = append(buckets[bucket][event.CreatedAt], event)
	}
	return buckets
}
