package service

import "strings"

// OrderRef is the structured information some flows encode into the order
// identifier itself: an entity type and an owner identifier, delimited by
// "-", followed by a millisecond timestamp.
type OrderRef struct {
	EntityType string
	OwnerID    string
	Timestamp  string
}

// plainOrderPrefix marks regular shop orders ("LC-<timestamp>"), which carry
// no encoded metadata.
const plainOrderPrefix = "LC"

// decodeOrderRef parses entity metadata out of an order identifier. The
// encoding is ambiguous: the entity-type token may itself contain the
// delimiter, so the segment count varies. Specific segment counts are tried
// first; beyond that, the last two segments are taken as owner id and
// timestamp and everything before them as the entity type.
func decodeOrderRef(orderID string) (OrderRef, bool) {
	segs := strings.Split(strings.TrimSpace(orderID), "-")
	for i, s := range segs {
		segs[i] = strings.TrimSpace(s)
	}

	switch {
	case len(segs) < 3:
		// "LC-1700000000000" or shorter: nothing encoded
		return OrderRef{}, false
	case segs[0] == plainOrderPrefix && len(segs) == 3:
		// "LC-<owner>-<ts>" is still a plain order with a retry suffix,
		// not an entitlement identifier
		return OrderRef{}, false
	case len(segs) == 3:
		return OrderRef{
			EntityType: segs[0],
			OwnerID:    segs[1],
			Timestamp:  segs[2],
		}, segs[0] != "" && segs[1] != ""
	default:
		n := len(segs)
		ref := OrderRef{
			EntityType: strings.Join(segs[:n-2], "-"),
			OwnerID:    segs[n-2],
			Timestamp:  segs[n-1],
		}
		return ref, ref.EntityType != "" && ref.OwnerID != ""
	}
}
