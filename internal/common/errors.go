package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindUpstream       Kind = "upstream"
	KindDatabase       Kind = "database"
	KindUnavailable    Kind = "unavailable"
	KindRateLimited    Kind = "rate_limited"
)

func (k Kind) status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) code() int {
	return k.status()*100 + 1
}

// AppError is an error classified for the API boundary. Message is safe to show to clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) error { return newErr(KindAuthentication, msg, nil) }
func Forbidden(msg string) error       { return newErr(KindAuthorization, msg, nil) }
func Invalid(msg string) error         { return newErr(KindValidation, msg, nil) }
func NotFound(msg string) error        { return newErr(KindNotFound, msg, nil) }
func Conflict(msg string) error        { return newErr(KindConflict, msg, nil) }
func RateLimited(msg string) error     { return newErr(KindRateLimited, msg, nil) }

func Upstream(msg string, err error) error    { return newErr(KindUpstream, msg, err) }
func Database(msg string, err error) error    { return newErr(KindDatabase, msg, err) }
func Unavailable(msg string, err error) error { return newErr(KindUnavailable, msg, err) }

// KindOf reports the taxonomy kind of err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind.status()
	}
	return http.StatusInternalServerError
}

// FromDB classifies a store error. what names the entity for not-found messages.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newErr(KindNotFound, what+" not found", err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newErr(KindValidation, "duplicate entry", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return newErr(KindValidation, "referenced record does not exist", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return newErr(KindValidation, "duplicate entry", err)
		case "23503":
			return newErr(KindValidation, "referenced record does not exist", err)
		case "23502":
			return newErr(KindValidation, "required field is missing", err)
		case "42501":
			return newErr(KindAuthorization, "insufficient permissions to perform this operation", err)
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return newErr(KindValidation, "duplicate entry", err)
		case 1452:
			return newErr(KindValidation, "referenced record does not exist", err)
		case 1048:
			return newErr(KindValidation, "required field is missing", err)
		}
	}

	return Database("database error", err)
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
