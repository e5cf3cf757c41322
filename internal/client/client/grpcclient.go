package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/otpkeeper/internal/common"
	pb "github.com/dmitrijs2005/otpkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the agent API as the CLI sees it.
type Client interface {
	Unlock(ctx context.Context, pass []byte) error
	Lock(ctx context.Context) error
	Codes(ctx context.Context) ([]pb.Code, error)
	Next(ctx context.Context, hash string) (string, error)
	AddURI(ctx context.Context, uri string) (string, error)
	Close() error
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.AgentClient

	mu          sync.Mutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *GRPCClient) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// accessTokenInterceptor attaches the session token. A token the agent
// rejects as expired is dropped, since only a new Unlock can replace it.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if token := s.token(); token != "" && method != pb.FullMethodUnlock {
		ctx = withAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if ok && st.Code() == codes.Unauthenticated && method != pb.FullMethodUnlock {
		s.setToken("")
	}
	return err
}

func NewAgentClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAgentClient(conn)
	return nil
}

func (s *GRPCClient) Unlock(ctx context.Context, pass []byte) error {

	resp, err := s.client.Unlock(ctx, wrapperspb.String(string(pass)))
	if err != nil {
		return s.mapError(err)
	}

	s.setToken(resp.GetValue())
	return nil
}

func (s *GRPCClient) Lock(ctx context.Context) error {

	_, err := s.client.Lock(ctx, &emptypb.Empty{})
	s.setToken("")
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Codes(ctx context.Context) ([]pb.Code, error) {

	resp, err := s.client.Codes(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return pb.CodesFromStruct(resp)
}

func (s *GRPCClient) Next(ctx context.Context, hash string) (string, error) {

	resp, err := s.client.Next(ctx, wrapperspb.String(hash))
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) AddURI(ctx context.Context, uri string) (string, error) {

	resp, err := s.client.AddURI(ctx, wrapperspb.String(uri))
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.GetValue(), nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), common.ErrorNotFound)
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w", st.Message(), common.ErrVaultLocked)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
