package interceptor

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"harvest-wallet-backend/internal/config"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/security"
)

type AuthInterceptor struct {
	verifier security.TokenVerifier
}

func NewAuthInterceptor(verifier security.TokenVerifier) *AuthInterceptor {
	return &AuthInterceptor{verifier: verifier}
}

// Unary returns a server interceptor function to authenticate unary RPCs.
// A verified caller is attached to the context; the ledger operations
// enforce its presence themselves.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if config.GetSecurityLevel(info.FullMethod) == config.SecurityPublic {
			return handler(ctx, req)
		}

		token, err := extractToken(ctx)
		if err != nil {
			return nil, err
		}

		caller, err := i.verifier.Verify(ctx, token)
		if err != nil {
			logger.Warn("Rejected token", "method", info.FullMethod, "error", err)
			if errors.Is(err, security.ErrExpiredToken) {
				return nil, status.Error(codes.Unauthenticated, "token has expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(security.WithCaller(ctx, caller), req)
	}
}

func extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	return security.BearerToken(authHeader[0]), nil
}
