// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers and the bookings service to distinguish between failure
// scenarios without inspecting driver errors.  The two booking guard
// errors are raised by the database trigger on the bookings table and
// decoded here so that callers see the same error surface regardless of
// whether a violation was caught in application code or at commit time.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a stock that still has
// active bookings.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrTooManyBookings mirrors the 'tooManyBookings' trigger signal: the
// insert would push the stock's booked quantity past its capacity.
var ErrTooManyBookings = errors.New("too many bookings for stock")

// ErrInsufficientFunds mirrors the 'insufficientFunds' trigger signal:
// the insert would exceed the beneficiary's deposit credit.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrTokenSpaceExhausted is returned when 100 consecutive countermark
// candidates collided with existing bookings.
var ErrTokenSpaceExhausted = errors.New("could not generate a unique booking token")

// mysqlTriggerError is the error number MySQL uses for unhandled
// user-defined SIGNAL conditions (SQLSTATE 45000).
const mysqlTriggerError = 1644

// mysqlDuplicateEntry is the error number for unique key violations.
const mysqlDuplicateEntry = 1062

// translateMySQL decodes trigger signals raised by the bookings guard
// trigger into their sentinel equivalents.  Other errors pass through.
func translateMySQL(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlTriggerError {
		switch me.Message {
		case "tooManyBookings":
			return ErrTooManyBookings
		case "insufficientFunds":
			return ErrInsufficientFunds
		}
	}
	return err
}

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
