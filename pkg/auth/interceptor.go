package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryServerInterceptor returns a unary server interceptor that materializes
// the caller capability from request metadata. Identity is supplied by the
// trusted environment in x-account-address / x-roles metadata; requests
// without it proceed without a caller and fail later at the permission check.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if shouldSkipAuth(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		address := first(md.Get("x-account-address"))
		if address == "" {
			return handler(ctx, req)
		}

		caller := Caller{
			Address: address,
			Roles:   ParseRoles(first(md.Get("x-roles"))),
		}

		return handler(WithCaller(ctx, caller), req)
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// shouldSkipAuth checks if caller extraction should be skipped for a method
func shouldSkipAuth(fullMethod string) bool {
	publicMethods := []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	}

	for _, method := range publicMethods {
		if fullMethod == method {
			return true
		}
	}
	return false
}
