/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/loqalabs/loqa-voxmind/internal/server"
)

func newStatusCmd(opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running voxmind daemon",
		Long: `Queries the daemon's HTTP health endpoint and its gRPC health service.
Exits non-zero when either is unreachable or not serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			host := opts.cfg.Server.Host
			if host == "" || host == "0.0.0.0" || host == "::" {
				host = "localhost"
			}
			out := cmd.OutOrStdout()

			healthy := true
			httpStatus, err := checkHTTP(ctx, net.JoinHostPort(host, strconv.Itoa(opts.cfg.Server.Port)))
			if err != nil {
				healthy = false
				httpStatus = "unreachable: " + err.Error()
			}
			fmt.Fprintf(out, "HTTP  :%d  %s\n", opts.cfg.Server.Port, httpStatus)

			grpcStatus, err := checkGRPC(ctx, net.JoinHostPort(host, strconv.Itoa(opts.cfg.Server.GRPCPort)))
			if err != nil {
				healthy = false
				grpcStatus = "unreachable: " + err.Error()
			} else if grpcStatus != healthpb.HealthCheckResponse_SERVING.String() {
				healthy = false
			}
			fmt.Fprintf(out, "gRPC  :%d  %s\n", opts.cfg.Server.GRPCPort, grpcStatus)

			if !healthy {
				return fmt.Errorf("voxmind is not healthy")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Overall check timeout")
	return cmd
}

func checkHTTP(ctx context.Context, addr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var body struct {
		Status        string `json:"status"`
		NATSConnected bool   `json:"nats_connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("invalid health response: %w", err)
	}
	return fmt.Sprintf("%s (nats connected: %t)", body.Status, body.NATSConnected), nil
}

func checkGRPC(ctx context.Context, addr string) (string, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.HealthService})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
