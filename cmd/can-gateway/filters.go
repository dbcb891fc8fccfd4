package main

import (
	"fmt"
	"strconv"
	"strings"
)

// errMaskAll selects every error class (CAN_ERR_MASK).
const errMaskAll = 0x1FFFFFFF

// filterSpec is a parsed receive filter, kept free of kernel types so
// configuration parsing works on any platform.
type filterSpec struct {
	id       uint32
	mask     uint32
	inverted bool
}

// parseFilterSpec parses candump-style filters: "id:mask" matches,
// "id~mask" matches everything but, entries separated by commas.
// Both fields are hex. An empty spec means no filtering.
func parseFilterSpec(spec string) ([]filterSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var out []filterSpec
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		inverted := false
		sep := strings.IndexByte(entry, ':')
		if sep < 0 {
			sep = strings.IndexByte(entry, '~')
			inverted = true
		}
		if sep < 0 {
			return nil, fmt.Errorf("filter %q: want id:mask or id~mask", entry)
		}
		id, err := strconv.ParseUint(entry[:sep], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("filter %q: bad id: %w", entry, err)
		}
		mask, err := strconv.ParseUint(entry[sep+1:], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("filter %q: bad mask: %w", entry, err)
		}
		out = append(out, filterSpec{id: uint32(id), mask: uint32(mask), inverted: inverted})
	}
	return out, nil
}

// parseErrMask parses the err-mask flag: empty disables error frames,
// "all" subscribes to every error class, anything else is a hex mask.
func parseErrMask(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0, nil
	case "all":
		return errMaskAll, nil
	}
	m, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(m), nil
}
