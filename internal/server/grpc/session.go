package grpc

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/server/auth"
)

// startSession replaces any current session and returns its token. When the
// session expires the vault is locked.
func (s *GRPCServer) startSession(ctx context.Context) (string, error) {
	id, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	token, err := auth.GenerateToken(id, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiry != nil {
		s.expiry.Stop()
	}
	s.sessionID = id
	s.expiry = time.AfterFunc(s.sessionTTL, func() { s.expire(ctx, id) })
	return token, nil
}

func (s *GRPCServer) expire(ctx context.Context, id string) {
	s.mu.Lock()
	if s.sessionID != id {
		s.mu.Unlock()
		return
	}
	s.sessionID = ""
	s.expiry = nil
	s.mu.Unlock()

	s.vault.Lock()
	s.logger.Info(context.WithoutCancel(ctx), "session expired, vault locked")
}

func (s *GRPCServer) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.sessionID = ""
}

func (s *GRPCServer) validSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID != "" && subtle.ConstantTimeCompare([]byte(id), []byte(s.sessionID)) == 1
}
