// Package grpc exposes an unlocked vault to other processes over gRPC.
// Every method except Unlock needs the session token Unlock returned; the
// vault locks itself when the session runs out.
package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/otpkeeper/internal/client/services"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
	"github.com/dmitrijs2005/otpkeeper/internal/logging"
	"github.com/dmitrijs2005/otpkeeper/internal/netx"
	pb "github.com/dmitrijs2005/otpkeeper/internal/proto"
	"google.golang.org/grpc"
)

// Vault is the part of services.VaultService the agent serves.
type Vault interface {
	Unlock(ctx context.Context, pass []byte) error
	Lock()
	IsLocked() bool
	Codes(ctx context.Context, now time.Time) ([]services.Code, error)
	Next(ctx context.Context, hash string) (string, error)
	AddURI(ctx context.Context, uri string) (services.Summary, error)
}

type GRPCServer struct {
	pb.UnimplementedAgentServer
	address    string
	vault      Vault
	logger     logging.Logger
	jwtSecret  []byte
	sessionTTL time.Duration
	now        func() time.Time

	mu        sync.Mutex
	sessionID string
	expiry    *time.Timer
}

// NewGRPCServer builds the agent. An empty secretKey gets a random one, so
// tokens do not survive a restart.
func NewGRPCServer(a string, l logging.Logger, v Vault, secretKey string, sessionTTL time.Duration) (*GRPCServer, error) {
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", sessionTTL)
	}
	if secretKey == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, err
		}
		secretKey = key
	}
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		vault:      v,
		jwtSecret:  []byte(secretKey),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	pb.RegisterAgentServer(srv, s)
	return srv
}

// Run serves until ctx ends, then stops gracefully and locks the vault.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := netx.Listen(s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	err = srv.Serve(listen)
	s.endSession()
	s.vault.Lock()
	return err
}
