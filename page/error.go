package page

import "github.com/dacapoday/pagestore"

var (
	ErrBadMagic       = pagestore.ErrBadMagic
	ErrBadHeader      = pagestore.ErrBadHeader
	ErrInvalidLayout  = pagestore.ErrInvalidLayout
	ErrLayoutMismatch = pagestore.ErrLayoutMismatch
)
