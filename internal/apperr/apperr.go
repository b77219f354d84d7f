// Package apperr defines the typed error kinds shared by services and
// handlers. Services return *Error values; handlers map kinds to HTTP
// status codes and surface the stable machine code to clients.
package apperr

import "fmt"

type Kind int

const (
	KindInvalidInput Kind = iota
	KindNotFound
	KindAlreadyAnalyzed
	KindAccessDenied
	KindQuotaExceeded
	KindInsufficientData
	KindServiceUnavailable
	KindConnectionFailed
	KindAnalysisFailed
	KindGeneral
	KindStore
)

// Stable machine-readable codes, one per kind.
var codes = map[Kind]string{
	KindInvalidInput:       "COMMON400",
	KindNotFound:           "RETRO404",
	KindAlreadyAnalyzed:    "RETRO409",
	KindAccessDenied:       "RETRO403",
	KindQuotaExceeded:      "RETRO429",
	KindInsufficientData:   "RETRO422",
	KindServiceUnavailable: "AI_003",
	KindConnectionFailed:   "AI_002",
	KindAnalysisFailed:     "AI_004",
	KindGeneral:            "AI_005",
	KindStore:              "COMMON500",
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind so callers can use errors.Is against the sentinels
// below without caring about message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Code() string { return codes[e.Kind] }

// Sentinels for errors.Is matching.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrAlreadyAnalyzed    = &Error{Kind: KindAlreadyAnalyzed}
	ErrAccessDenied       = &Error{Kind: KindAccessDenied}
	ErrQuotaExceeded      = &Error{Kind: KindQuotaExceeded}
	ErrInsufficientData   = &Error{Kind: KindInsufficientData}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrConnectionFailed   = &Error{Kind: KindConnectionFailed}
	ErrAnalysisFailed     = &Error{Kind: KindAnalysisFailed}
	ErrGeneral            = &Error{Kind: KindGeneral}
	ErrStore              = &Error{Kind: KindStore}
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func InvalidInput(msg string) *Error { return New(KindInvalidInput, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func AccessDenied(msg string) *Error { return New(KindAccessDenied, msg) }

func AlreadyAnalyzed() *Error {
	return New(KindAlreadyAnalyzed, "이미 분석이 완료된 회고입니다.")
}

func QuotaExceeded(msg string) *Error    { return New(KindQuotaExceeded, msg) }
func InsufficientData(msg string) *Error { return New(KindInsufficientData, msg) }

func ServiceUnavailable(msg string, err error) *Error {
	return Wrap(KindServiceUnavailable, msg, err)
}

func ConnectionFailed(msg string) *Error { return New(KindConnectionFailed, msg) }

func AnalysisFailed(msg string, err error) *Error {
	return Wrap(KindAnalysisFailed, msg, err)
}

func General(err error) *Error {
	return Wrap(KindGeneral, "AI 처리 중 오류가 발생했습니다.", err)
}

func Store(err error) *Error {
	return Wrap(KindStore, "데이터 처리 중 오류가 발생했습니다.", err)
}
