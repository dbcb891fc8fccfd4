//go:build linux

package socketcan

import "golang.org/x/sys/unix"

// Filter is one kernel receive filter rule. A received frame matches when
// (received_id & Mask) == (ID & Mask); with the inversion bit set in ID the
// rule matches exactly when that equality fails.
//
// The struct layout mirrors struct can_filter, so a []Filter is passed to
// the kernel as-is. Filters are comparable, which makes deduplicating a
// rule set before installation a map away.
type Filter struct {
	ID   uint32
	Mask uint32
}

// NewFilter builds a rule matching ids with (id & mask) == (ID & mask).
func NewFilter(id, mask uint32) Filter {
	return Filter{ID: id, Mask: mask}
}

// NewInvertedFilter builds a rule matching exactly the ids NewFilter(id,
// mask) would reject.
func NewInvertedFilter(id, mask uint32) Filter {
	return Filter{ID: id | unix.CAN_INV_FILTER, Mask: mask}
}

// NewStandardFilter matches a single 11-bit identifier.
func NewStandardFilter(id uint32) Filter {
	return NewFilter(id, unix.CAN_SFF_MASK)
}

// NewExtendedFilter matches a single 29-bit identifier.
func NewExtendedFilter(id uint32) Filter {
	return NewFilter(id, unix.CAN_EFF_MASK)
}

// Inverted reports whether the rule carries the kernel inversion bit.
func (f Filter) Inverted() bool { return f.ID&unix.CAN_INV_FILTER != 0 }

// Matches reports whether the rule accepts the given received identifier,
// honoring the inversion bit. This mirrors the kernel-side match so filter
// sets can be reasoned about and tested without a bus.
func (f Filter) Matches(id uint32) bool {
	match := id&f.Mask == (f.ID&^uint32(unix.CAN_INV_FILTER))&f.Mask
	return match != f.Inverted()
}
