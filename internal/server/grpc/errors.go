package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/otpkeeper/internal/base32x"
	"github.com/dmitrijs2005/otpkeeper/internal/client/models"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
	"github.com/dmitrijs2005/otpkeeper/internal/otpauth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var invalidArgument = []error{
	otpauth.ErrNotAnOtpURI,
	otpauth.ErrUnsupportedType,
	otpauth.ErrMissingOrInvalidSecret,
	otpauth.ErrInvalidPeriod,
	otpauth.ErrInvalidDigits,
	otpauth.ErrInvalidAlgorithm,
	otpauth.ErrInvalidCounter,
	otpauth.ErrInvalidLabel,
	otp.ErrInvalidParameter,
	otp.ErrUnsupportedAlgorithm,
	base32x.ErrInvalidEncoding,
	models.ErrInvalidOperation,
}

// toStatus maps vault errors onto gRPC codes. The message of an internal
// error is not sent to the caller.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrVaultLocked), errors.Is(err, common.ErrNoPassphrase):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrUnlockAborted):
		return status.Error(codes.Aborted, err.Error())
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
