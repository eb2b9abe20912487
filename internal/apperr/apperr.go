// Package apperr 定義服務層回傳的錯誤類型。
//
// 每個錯誤帶有穩定的 Kind，供 HTTP 層或 CLI 對應成回應。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 錯誤類別
type Kind string

const (
	KindValidation    Kind = "validation"
	KindPhase         Kind = "phase"
	KindPermission    Kind = "permission"
	KindDuplicateVote Kind = "duplicate_vote"
	KindAlreadyClosed Kind = "already_closed"
	KindNotFound      Kind = "not_found"
	KindInvalidWinner Kind = "invalid_winner"
	KindStorage       Kind = "storage"
	KindConflict      Kind = "conflict"
	KindUnauthorized  Kind = "unauthorized"
)

// Error 服務層錯誤
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 建立不帶底層原因的錯誤
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap 以指定類別包裝底層錯誤
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 回傳錯誤鏈上第一個 *Error 的類別，非 *Error 時回傳空字串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is 檢查錯誤是否屬於指定類別
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, format, args...)
}

func Phase(op, format string, args ...any) *Error {
	return New(KindPhase, op, format, args...)
}

func Permission(op, format string, args ...any) *Error {
	return New(KindPermission, op, format, args...)
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

func Storage(op string, err error) *Error {
	return Wrap(KindStorage, op, err)
}
