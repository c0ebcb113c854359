// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
// Every uniqueness and referential rule is enforced by the schema; the repositories only
// translate constraint violations into the domain errors.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// constraintErrors maps constraint names to domain errors for one call site.
type constraintErrors map[string]error

// translate maps a constraint violation to its domain error, wraps anything else with msg.
func translate(err error, msg string, known constraintErrors) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case uniqueViolation, foreignKeyViolation:
			if dErr, found := known[pqErr.Constraint]; found {
				return dErr
			}
		}
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// whereClause accumulates AND-ed conditions with "?" placeholders.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderClause keeps the orderings on known fields, mapped to their columns.
func orderClause(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			list = append(list, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

// selectPage runs the count and page queries of a list endpoint.
func selectPage(
	ctx context.Context,
	db *sqlx.DB,
	dest interface{},
	from string,
	where whereClause,
	order string,
	page core.Page,
	columns string,
) (int, error) {
	var total int
	q := db.Rebind("SELECT COUNT(*) FROM " + from + where.String())
	if err := db.GetContext(ctx, &total, q, where.args...); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}

	page = page.Clean()
	q = db.Rebind("SELECT " + columns + " FROM " + from + where.String() + order + " LIMIT ? OFFSET ?")
	args := append(append([]interface{}{}, where.args...), page.Limit, page.Offset())
	if err := db.SelectContext(ctx, dest, q, args...); err != nil {
		return 0, errors.Wrap(err, "selecting rows")
	}
	return total, nil
}
