package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/patrol/internal/client"
	"github.com/alfredjeanlab/patrol/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Check a running validator's HTTP and gRPC health",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		grpcAddr, _ := cmd.Flags().GetString("grpc")
		if serverURL == "" && grpcAddr == "" {
			return errors.New("--server or --grpc is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result := map[string]string{}
		var failed bool
		if serverURL != "" {
			c := client.NewHTTPClient(serverURL, serverToken)
			status, err := c.Health(ctx)
			if err != nil {
				status, failed = err.Error(), true
			}
			result["http"] = status
		}
		if grpcAddr != "" {
			status, err := grpcHealth(ctx, grpcAddr)
			if err != nil {
				status, failed = err.Error(), true
			} else if status != "SERVING" {
				failed = true
			}
			result["grpc"] = status
		}

		if jsonOutput {
			printJSON(result)
		} else {
			for _, name := range []string{"http", "grpc"} {
				if status, ok := result[name]; ok {
					fmt.Printf("%-5s %s\n", ui.RenderAccent(name), status)
				}
			}
		}
		if failed {
			return errors.New("validator is unhealthy")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("grpc", envOr("PATROL_GRPC_ADDR", ""), "gRPC address to health check")
}

func grpcHealth(ctx context.Context, addr string) (string, error) {
	c, err := client.NewGRPCClient(addr)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.Health(ctx)
}
