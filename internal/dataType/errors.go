package dataType

import "errors"

var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrParse            = errors.New("parse error")
	ErrOutOfMemory      = errors.New("out of trie nodes")
	ErrUnknownSet       = errors.New("unknown ip set")
)
