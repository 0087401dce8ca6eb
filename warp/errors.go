package warp

import "github.com/pkg/errors"

var (
	// ErrInvalidShape: batch, height, width or channel counts that do not fit together.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrDegenerateTransform: a singular, rank-deficient or non-finite transform.
	ErrDegenerateTransform = errors.New("degenerate transform")
	// ErrInvalidParameter: an argument outside its valid domain.
	ErrInvalidParameter = errors.New("invalid parameter")
)
