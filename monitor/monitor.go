// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package monitor exposes the liveness of the simulation and of every node through the standard
// gRPC health checking service. The service name of a node is its node name, e.g. "node3"; the
// empty service name reports the simulation itself.
package monitor

import (
	"net"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/meshsense/meshnode/logger"
	. "github.com/meshsense/meshnode/types"
)

type Monitor struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

// New listens on addr and registers the health service. Serve must be called to answer requests.
func New(addr string) (*Monitor, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "monitor listen on %s", addr)
	}

	m := &Monitor{
		server: grpc.NewServer(),
		health: health.NewServer(),
		lis:    lis,
	}
	healthpb.RegisterHealthServer(m.server, m.health)
	return m, nil
}

// Serve answers requests until Stop is called.
func (m *Monitor) Serve() error {
	logger.Infof("monitor serving on %s", m.lis.Addr())
	err := m.server.Serve(m.lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (m *Monitor) Addr() string {
	return m.lis.Addr().String()
}

func status(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// SetNodeStatus reports whether the node is running.
func (m *Monitor) SetNodeStatus(id SimNodeId, serving bool) {
	m.health.SetServingStatus(GetNodeName(id), status(serving))
}

// SetSimulationStatus reports whether the simulation is running.
func (m *Monitor) SetSimulationStatus(serving bool) {
	m.health.SetServingStatus("", status(serving))
}

// Stop marks everything NOT_SERVING and stops the server.
func (m *Monitor) Stop() {
	m.health.Shutdown()
	m.server.GracefulStop()
}
