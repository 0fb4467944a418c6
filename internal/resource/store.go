package resource

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"

	"billing/internal/domain"
)

// MySQL error numbers the pipeline recognizes.
const (
	errDupEntry      = 1062
	errNoDefault     = 1364
	errNotNull       = 1048
	errNoRefRow      = 1452
	errRowRefd       = 1451
	errBadField      = 1054
	errGroupMismatch = 1055
	errParse         = 1064
	errNoTable       = 1146
	errLockWait      = 1205
	errDeadlock      = 1213
	errTooManyConn   = 1040
	errServerGone    = 2006
	errServerLost    = 2013
)

// storeFailure classifies a driver error into the typed persistence
// taxonomy. The caller has already rolled the transaction back; the
// returned error carries the original payload and operation name so the
// dispatcher can shape the response.
func storeFailure(operation string, data any, err error) error {
	kind := domain.StoreOperational
	status := http.StatusInternalServerError

	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &myErr):
		switch myErr.Number {
		case errDupEntry, errNotNull, errNoDefault, errNoRefRow, errRowRefd:
			kind, status = domain.StoreIntegrity, http.StatusBadRequest
		case errBadField, errGroupMismatch, errParse, errNoTable:
			kind, status = domain.StoreInvalidRequest, http.StatusBadRequest
		case errLockWait, errDeadlock, errTooManyConn, errServerGone, errServerLost:
			kind, status = domain.StoreOperational, http.StatusBadRequest
		}
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind, status = domain.StoreOperational, http.StatusInternalServerError
	case errors.Is(err, sql.ErrTxDone):
		kind, status = domain.StoreDetached, http.StatusInternalServerError
	}

	return domain.StoreError{
		Kind:      kind,
		Operation: operation,
		Status:    status,
		Data:      data,
		Err:       err,
	}
}
