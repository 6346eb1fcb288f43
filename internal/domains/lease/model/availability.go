package model

// IsAvailable is the availability predicate. Every availability answer in the
// service, single book or bulk, goes through here with the ledger's latest record.
//
//	no record            → available
//	latest returned      → available
//	latest outstanding   → leased
func IsAvailable(latest *LeaseRecord) bool {
	return latest == nil || latest.ReturnedAt != nil
}

// Resolve builds the BookAvailability for a ledger head.
func Resolve(head BookHead) BookAvailability {
	out := BookAvailability{
		BookID:    head.BookID,
		Available: IsAvailable(head.Latest),
	}
	if !out.Available {
		active := *head.Latest
		out.ActiveLease = &active
	}
	return out
}

// FilterHeads keeps the book ids whose availability equals available, preserving order.
func FilterHeads(heads []BookHead, available bool) []int64 {
	ids := make([]int64, 0, len(heads))
	for _, h := range heads {
		if IsAvailable(h.Latest) == available {
			ids = append(ids, h.BookID)
		}
	}
	return ids
}
