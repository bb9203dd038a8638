package go_hostctl

import (
	"errors"
	"fmt"
)

// Code is a status code of the host-control taxonomy. Zero is success,
// 10001-19999 are caused by user input, 20001-29999 by the local system and
// 90001-99999 are failures whose origin could not be determined.
type Code int32

const (
	CodeSuccess Code = 0
	CodeUnknown Code = -1

	CodeLogonFailure       Code = 10001
	CodeAccountRestriction Code = 10002
	CodeWrongPassword      Code = 10003
	CodeAccountDisabled    Code = 10004
	CodeParameterError     Code = 10005
	CodeParameterTooLong   Code = 10006
	CodeIllegalCharacter   Code = 10007
	CodeCredentialsEmpty   Code = 10009
	CodeUnsupportedOS      Code = 10017

	CodeInsufficientMemory    Code = 20001
	CodeCredentialProvider    Code = 20002
	CodePluginManager         Code = 20003
	CodeInternal              Code = 20004
	CodeInternalParameter     Code = 20005
	CodeSetPowerSaveMode      Code = 20006
	CodeBluetoothInit         Code = 20007
	CodeBluetoothStop         Code = 20008
	CodeServiceAlreadyRunning Code = 20009

	CodeUnknownLogonFailure Code = 90001
)

const (
	userCodeStart      = 10001
	userCodeEnd        = 19999
	systemCodeStart    = 20001
	systemCodeEnd      = 29999
	uncertainCodeStart = 90001
	uncertainCodeEnd   = 99999
)

func (c Code) IsUser() bool {
	return c >= userCodeStart && c <= userCodeEnd
}

func (c Code) IsSystem() bool {
	return c >= systemCodeStart && c <= systemCodeEnd
}

func (c Code) IsUncertain() bool {
	return c >= uncertainCodeStart && c <= uncertainCodeEnd
}

// Error is a failure carrying a Code. Two errors match with errors.Is when
// their codes are equal.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}

	return e.Code == other.Code
}

var (
	ErrUnknown = &Error{CodeUnknown, "unknown error"}

	ErrLogonFailure       = &Error{CodeLogonFailure, "logon failure"}
	ErrAccountRestriction = &Error{CodeAccountRestriction, "account restriction"}
	ErrWrongPassword      = &Error{CodeWrongPassword, "wrong password"}
	ErrAccountDisabled    = &Error{CodeAccountDisabled, "account disabled"}
	ErrParameter          = &Error{CodeParameterError, "parameter error"}
	ErrParameterTooLong   = &Error{CodeParameterTooLong, "parameter length exceeds limit"}
	ErrIllegalCharacter   = &Error{CodeIllegalCharacter, "illegal character in parameter"}
	ErrCredentialsEmpty   = &Error{CodeCredentialsEmpty, "username or password cannot be empty"}
	ErrUnsupportedOS      = &Error{CodeUnsupportedOS, "operation not supported on the current operating system"}

	ErrInsufficientMemory    = &Error{CodeInsufficientMemory, "insufficient memory"}
	ErrCredentialProvider    = &Error{CodeCredentialProvider, "credential provider error"}
	ErrPluginManager         = &Error{CodePluginManager, "plugin manager exception"}
	ErrInternal              = &Error{CodeInternal, "internal error"}
	ErrInternalParameter     = &Error{CodeInternalParameter, "internal parameter error"}
	ErrSetPowerSaveMode      = &Error{CodeSetPowerSaveMode, "failed setting power saving mode"}
	ErrBluetoothInit         = &Error{CodeBluetoothInit, "bluetooth service init failure"}
	ErrBluetoothStop         = &Error{CodeBluetoothStop, "bluetooth service stop failure"}
	ErrServiceAlreadyRunning = &Error{CodeServiceAlreadyRunning, "service already running"}

	ErrUnknownLogonFailure = &Error{CodeUnknownLogonFailure, "unknown logon failure"}
)

var errorsByCode = func() map[Code]*Error {
	m := make(map[Code]*Error)
	for _, e := range []*Error{
		ErrUnknown,
		ErrLogonFailure, ErrAccountRestriction, ErrWrongPassword, ErrAccountDisabled,
		ErrParameter, ErrParameterTooLong, ErrIllegalCharacter, ErrCredentialsEmpty, ErrUnsupportedOS,
		ErrInsufficientMemory, ErrCredentialProvider, ErrPluginManager, ErrInternal,
		ErrInternalParameter, ErrSetPowerSaveMode, ErrBluetoothInit, ErrBluetoothStop,
		ErrServiceAlreadyRunning,
		ErrUnknownLogonFailure,
	} {
		m[e.Code] = e
	}
	return m
}()

// ErrorByCode returns the canonical error for code, nil for CodeSuccess and
// ErrUnknown for codes outside the taxonomy.
func ErrorByCode(code Code) *Error {
	if code == CodeSuccess {
		return nil
	}

	if e, ok := errorsByCode[code]; ok {
		return e
	}

	return ErrUnknown
}

// CodeOf extracts the taxonomy code of err. A nil error is CodeSuccess and
// errors outside the taxonomy are CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeUnknown
}
