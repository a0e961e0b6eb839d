package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	mysqlDuplicateEntry   = 1062    // ER_DUP_ENTRY
	postgresUniqueViolate = "23505" // unique_violation
)

// classifyUnique maps a driver unique-constraint violation on the users table
// to ErrDuplicateUsername or ErrDuplicateEmail. Other errors are returned as is.
func classifyUnique(err error) error {
	if err == nil {
		return nil
	}

	var detail string
	var myErr *mysql.MySQLError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry:
		// Duplicate entry 'value' for key 'users.idx_users_email'
		detail = myErr.Message
		if i := strings.LastIndex(detail, "for key"); i >= 0 {
			detail = detail[i:]
		}
	case errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolate:
		detail = pgErr.ConstraintName
	default:
		return err
	}

	if strings.Contains(strings.ToLower(detail), "email") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}
