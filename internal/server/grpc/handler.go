package grpc

import (
	"context"
	"strings"

	pb "github.com/dmitrijs2005/otpkeeper/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Unlock(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {

	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "passphrase required")
	}

	if err := s.vault.Unlock(ctx, []byte(req.GetValue())); err != nil {
		s.logger.Warn(ctx, "unlock failed", "error", err)
		return nil, s.toStatus(ctx, err)
	}

	token, err := s.startSession(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Vault unlocked", "ttl", s.sessionTTL)
	return wrapperspb.String(token), nil
}

func (s *GRPCServer) Lock(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {

	s.endSession()
	s.vault.Lock()

	s.logger.Info(ctx, "Vault locked")
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Codes(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {

	list, err := s.vault.Codes(ctx, s.now())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]pb.Code, 0, len(list))
	for _, c := range list {
		item := pb.Code{
			Hash:      c.Hash,
			Label:     c.Label,
			Kind:      c.Kind.String(),
			Code:      c.Code,
			Remaining: c.Remaining,
			Pinned:    c.Pinned,
		}
		if c.Err != nil {
			item.Error = c.Err.Error()
		}
		out = append(out, item)
	}

	resp, err := pb.CodesToStruct(out)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}

func (s *GRPCServer) Next(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {

	code, err := s.vault.Next(ctx, strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return wrapperspb.String(code), nil
}

func (s *GRPCServer) AddURI(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {

	sum, err := s.vault.AddURI(ctx, strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Entry added", "hash", sum.Hash)
	return wrapperspb.String(sum.Hash), nil
}
