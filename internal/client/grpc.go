package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCClient checks a validator's gRPC health service.
type GRPCClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Health returns the serving status of the whole server, e.g. "SERVING".
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
