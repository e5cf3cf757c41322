package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
	pb "github.com/dmitrijs2005/otpkeeper/internal/proto"
	"github.com/dmitrijs2005/otpkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const sessionIDKey ctxKey = "sessionID"

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if info.FullMethod == pb.FullMethodUnlock {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	sessionID, err := auth.GetSessionIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}
	if !s.validSession(sessionID) {
		return nil, status.Error(codes.Unauthenticated, "session ended")
	}

	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return handler(ctx, req)
}

// loggingInterceptor logs each call without its payload; requests carry
// passphrases and otpauth URIs.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}
