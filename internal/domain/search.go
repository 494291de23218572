package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxQueryLength = 100

	DefaultResultsPerPage = 20
	// MaxResultsPerPage - потолок limit у каталога
	MaxResultsPerPage = 25
)

// SearchParams - каноничные параметры запроса поиска.
// Page >= 1, Limit > 0. Длина запроса считается в символах.
type SearchParams struct {
	Query string
	Page  int
	Limit int
}

func (p *SearchParams) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return ErrEmptyQuery
	}
	if utf8.RuneCountInString(p.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if p.Page < 1 || p.Limit < 1 || p.Limit > MaxResultsPerPage {
		return ErrInvalidParameters
	}
	return nil
}

func (p *SearchParams) Sanitize() {
	p.Query = strings.TrimSpace(p.Query)
	if utf8.RuneCountInString(p.Query) > MaxQueryLength {
		p.Query = string([]rune(p.Query)[:MaxQueryLength])
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultResultsPerPage
	}
	if p.Limit > MaxResultsPerPage {
		p.Limit = MaxResultsPerPage
	}
}
