package retry

import (
	"context"
	"net"

	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
)

// Class says how an error should be handled by a retry loop.
type Class int

const (
	// Permanent errors are returned to the caller as is.
	Permanent Class = iota
	// Throttled errors mean the table or account is out of capacity.
	Throttled
	// Transient errors are server side faults or broken connections.
	Transient
)

func (c Class) String() string {
	switch c {
	case Throttled:
		return "throttled"
	case Transient:
		return "transient"
	}
	return "permanent"
}

// Retryable reports whether the class is worth another attempt.
func (c Class) Retryable() bool {
	return c != Permanent
}

var throttleCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"Throttling":                             true,
	"RequestLimitExceeded":                   true,
	// Returned by CreateTable when too many tables are being created at once.
	"LimitExceededException": true,
}

var transientCodes = map[string]bool{
	"InternalServerError": true,
	"InternalFailure":     true,
	"ServiceUnavailable":  true,
}

// Classify maps an error returned by the DynamoDB API (or a local stand-in)
// to a Class. Cancellation and our own validation errors are permanent.
func Classify(err error) Class {
	if err == nil {
		return Permanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ddberr.IsFatal(err) {
		return Permanent
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code]:
			return Throttled
		case transientCodes[code], apiErr.ErrorFault() == smithy.FaultServer:
			return Transient
		}
		return Permanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Permanent
}

// Code returns the API error code of err, or "" when err is not an API error.
func Code(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
