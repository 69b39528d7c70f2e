package hh

import (
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// The vacancies search never returns more than this many results, however it
// is paged.
const maxResults = 2000

var ErrTooDeepPagination = errors.New("too deep pagination")

// EmployerQuery selects one page of an employer's open vacancies, newest first.
type EmployerQuery struct {
	EmployerID string
	Page       int
	PerPage    int
}

func (q EmployerQuery) Validate() error {
	switch {
	case q.EmployerID == "":
		return errors.New("employer id is required")
	case q.Page < 0:
		return errors.New("page must be non-negative")
	case q.PerPage <= 0 || q.PerPage > 100:
		return errors.New("per page must be between 1 and 100")
	case (q.Page+1)*q.PerPage > maxResults:
		return ErrTooDeepPagination
	}
	return nil
}

func (q EmployerQuery) values() url.Values {
	return url.Values{
		"employer_id": {q.EmployerID},
		"order_by":    {"publication_time"},
		"page":        {strconv.Itoa(q.Page)},
		"per_page":    {strconv.Itoa(q.PerPage)},
	}
}

type Schedule string

const Remote Schedule = "remote"
