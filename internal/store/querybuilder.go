package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/starford/munin/internal/apperr"
)

// SortField selects the note column a listing is ordered by.
type SortField string

// Allowed sort fields.
const (
	SortCreated    SortField = "created"
	SortLastEdited SortField = "last_edited"
	SortTitle      SortField = "title"
)

// SortDir is the sort direction.
type SortDir string

// Allowed sort directions.
const (
	SortAsc  SortDir = "ASC"
	SortDesc SortDir = "DESC"
)

// reversed returns the opposite direction. Attachment fetches use it so the
// flat result sets line up with tail-popping in the aggregation pass.
func (d SortDir) reversed() SortDir {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Sort is a note listing sort specification.
type Sort struct {
	Field SortField
	Dir   SortDir
}

// DateRange is an inclusive range of unix-second timestamps. End is bound as
// End+1 so that a whole-day range built from day boundaries includes the
// entire last day.
type DateRange struct {
	Start int64
	End   int64
}

// Filters restricts a note listing. Nil members mean "no restriction".
//
// TagIDs distinguishes nil from empty: a non-nil empty set selects notes
// with no tags at all, not an unfiltered listing.
type Filters struct {
	TagIDs     *[]int64
	Created    *DateRange
	LastEdited *DateRange
	Search     *string
}

// Page is 1-based pagination.
type Page struct {
	Number  int64
	PerPage int64
}

// buildListQueries produces the row query and its companion count query for
// a note listing. Both share an identical WHERE clause and a single ordered
// argument list; the count args are a strict prefix of the row args (the row
// query appends only LIMIT/OFFSET), so one binding pass serves both.
func buildListQueries(userID int64, f Filters, s Sort, p Page) (rowSQL, countSQL string, rowArgs, countArgs []any, err error) {
	switch s.Field {
	case SortCreated, SortLastEdited, SortTitle:
	default:
		return "", "", nil, nil, fmt.Errorf("store: sort field %q: %w", s.Field, apperr.ErrInvalidArgument)
	}
	switch s.Dir {
	case SortAsc, SortDesc:
	default:
		return "", "", nil, nil, fmt.Errorf("store: sort direction %q: %w", s.Dir, apperr.ErrInvalidArgument)
	}
	if p.Number < 1 || p.PerPage < 1 {
		return "", "", nil, nil, fmt.Errorf("store: page %d size %d: %w", p.Number, p.PerPage, apperr.ErrInvalidArgument)
	}

	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if f.TagIDs != nil {
		if len(*f.TagIDs) > 0 {
			in, inArgs, inErr := sqlx.In("id IN (SELECT note_id FROM note_tags WHERE tag_id IN (?))", *f.TagIDs)
			if inErr != nil {
				return "", "", nil, nil, fmt.Errorf("store: expand tag filter: %v: %w", inErr, apperr.ErrInternal)
			}
			clauses = append(clauses, in)
			args = append(args, inArgs...)
		} else {
			// An explicitly empty tag set means "notes with no tags at all".
			clauses = append(clauses, "id NOT IN (SELECT note_id FROM note_tags)")
		}
	}

	if f.Created != nil {
		clauses = append(clauses, "created BETWEEN ? AND ?")
		args = append(args, f.Created.Start, f.Created.End+1)
	}

	if f.LastEdited != nil {
		clauses = append(clauses, "last_edited BETWEEN ? AND ?")
		args = append(args, f.LastEdited.Start, f.LastEdited.End+1)
	}

	if f.Search != nil {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, "%"+*f.Search+"%")
	}

	where := strings.Join(clauses, " AND ")
	countSQL = "SELECT COUNT(*) FROM notes WHERE " + where
	countArgs = args

	rowSQL = fmt.Sprintf(
		"SELECT * FROM notes WHERE %s ORDER BY %s %s, id DESC LIMIT ? OFFSET ?",
		where, s.Field, s.Dir,
	)
	rowArgs = append(append([]any{}, args...), p.PerPage, (p.Number-1)*p.PerPage)

	return rowSQL, countSQL, rowArgs, countArgs, nil
}
