package domain

import "errors"

// ошибки параметров, проверяются до запроса в каталог
var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrEmptyQuery        = errors.New("empty query")
	ErrQueryTooLong      = errors.New("query too long")
	ErrPageOutOfRange    = errors.New("page out of range")
)

var (
	ErrNoResults = errors.New("no results found")
)
