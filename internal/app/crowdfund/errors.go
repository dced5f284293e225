// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package crowdfund

import (
	"github.com/pkg/errors"
)

// Kind tags every failure a call can end with.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInsufficientContribution
	KindNotOwner
	KindIndexOutOfRange
	KindTransferFailed
	KindInsufficientBalance
	KindOutOfGas
	KindInvalidArgument
	KindUnknownContract
)

var kindNames = map[Kind]string{
	KindUnknown:                  "Unknown",
	KindInsufficientContribution: "InsufficientContribution",
	KindNotOwner:                 "NotOwner",
	KindIndexOutOfRange:          "IndexOutOfRange",
	KindTransferFailed:           "TransferFailed",
	KindInsufficientBalance:      "InsufficientBalance",
	KindOutOfGas:                 "OutOfGas",
	KindInvalidArgument:          "InvalidArgument",
	KindUnknownContract:          "UnknownContract",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is a tagged call failure. Two errors match with errors.Is when
// their kinds are equal, so the sentinels below work for wrapped values too.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

var (
	ErrInsufficientContribution = &Error{Kind: KindInsufficientContribution, Reason: "You need to spend some ETH"}
	ErrNotOwner                 = &Error{Kind: KindNotOwner, Reason: "FundMe__NotOwner"}
	ErrIndexOutOfRange          = &Error{Kind: KindIndexOutOfRange, Reason: "index out of range"}
	ErrTransferFailed           = &Error{Kind: KindTransferFailed, Reason: "Call failed"}
	ErrInsufficientBalance      = &Error{Kind: KindInsufficientBalance, Reason: "insufficient funds for transfer"}
	ErrOutOfGas                 = &Error{Kind: KindOutOfGas, Reason: "out of gas"}
	ErrInvalidArgument          = &Error{Kind: KindInvalidArgument, Reason: "invalid argument"}
	ErrUnknownContract          = &Error{Kind: KindUnknownContract, Reason: "no contract at address"}
)

func NewError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap tags cause with kind. A nil cause yields a plain tagged error.
func Wrap(kind Kind, cause error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Reason + ": " + e.cause.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost tagged error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
