package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/leave-ledger/internal/platform/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDHeader はリクエスト ID を運ぶメタデータのキーです。
const RequestIDHeader = "x-request-id"

type requestIDKey struct{}

// RequestID はコンテキストに紐づくリクエスト ID を返します。
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// UnaryInterceptor はリクエスト ID の付与、パニックの回復、アクセスログ、メトリクス記録を行います。
func UnaryInterceptor(logger *slog.Logger, recorder *metrics.Recorder) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()

		requestID := incomingRequestID(ctx)
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "panic in gRPC handler", "method", info.FullMethod, "request_id", requestID, "panic", fmt.Sprint(r))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			elapsed := time.Since(start)
			if recorder != nil {
				recorder.ObserveRPC(info.FullMethod, code.String(), elapsed)
			}

			level := slog.LevelInfo
			switch code {
			case codes.Internal, codes.Unknown, codes.DataLoss:
				level = slog.LevelError
			case codes.Aborted:
				level = slog.LevelWarn
			}
			attrs := []any{"method", info.FullMethod, "code", code.String(), "duration", elapsed, "request_id", requestID}
			if err != nil {
				attrs = append(attrs, "error", status.Convert(err).Message())
			}
			logger.Log(ctx, level, "gRPC request", attrs...)
		}()

		return next(ctx, req)
	}
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RequestIDHeader); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return uuid.NewString()
}
