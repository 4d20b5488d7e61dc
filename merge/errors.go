package merge

import "errors"

// ErrMerge marks fatal structural failures: CRS mismatch between sources,
// a non-rectilinear/flipped/upside-down source transform, an empty source
// list, or an unknown merge method name. Test with errors.Is.
var ErrMerge = errors.New("merge failed")
