package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/patrol/internal/metrics"
)

// Health checkers and scrapers reach these without a token.
var (
	publicRPCPrefixes = []string{"/grpc.health.v1.Health/"}
	publicPaths       = map[string]struct{}{"/healthz": {}, "/metrics": {}}
)

var (
	errMissingAuth   = errors.New("missing authorization header")
	errInvalidScheme = errors.New("invalid authorization scheme")
	errInvalidToken  = errors.New("invalid token")
)

func isPublicRPC(method string) bool {
	for _, p := range publicRPCPrefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

func isPublicRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	_, ok := publicPaths[r.URL.Path]
	return ok
}

// checkBearer validates an Authorization value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errMissingAuth
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errInvalidScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errInvalidToken
	}
	return nil
}

// authorizeRPC checks the "authorization" metadata of a non-public call.
func authorizeRPC(ctx context.Context, method, token string) error {
	if token == "" || isPublicRPC(method) {
		return nil
	}
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	if err := checkBearer(header, token); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return nil
}

// LoggingInterceptor logs and counts every unary call by method and status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logRPC(logger, info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// StreamLoggingInterceptor is LoggingInterceptor for streaming calls such
// as reflection and health watches.
func StreamLoggingInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logRPC(logger, info.FullMethod, time.Since(start), err)
		return err
	}
}

func logRPC(logger *slog.Logger, method string, elapsed time.Duration, err error) {
	code := status.Code(err)
	metrics.ObserveRPC(method, code.String())
	if err != nil {
		logger.Error("rpc completed", "method", method, "code", code.String(), "duration", elapsed, "err", err)
		return
	}
	logger.Debug("rpc completed", "method", method, "duration", elapsed)
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered in gRPC handler",
					"method", info.FullMethod,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// AuthInterceptor requires "authorization: Bearer <token>" on every unary
// call outside the health service. An empty token disables auth.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := authorizeRPC(ctx, info.FullMethod, token); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor applies AuthInterceptor's rule to streams, so
// reflection needs the token while health watches do not.
func StreamAuthInterceptor(token string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := authorizeRPC(ss.Context(), info.FullMethod, token); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// AuthMiddleware requires a bearer token on every request except GET or
// HEAD of /healthz and /metrics. An empty token disables auth.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		if err := checkBearer(r.Header.Get("Authorization"), token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
