package catalog

import "errors"

var (
	// ErrRead indicates the snapshot resource could not be read.
	ErrRead = errors.New("catalog read error")
	// ErrParse indicates the snapshot could not be parsed.
	ErrParse = errors.New("catalog parse error")
)
