// Package worker runs segmentation as a network service, so one machine
// with the ONNX models and a GPU can serve batch jobs running elsewhere.
// The server side wraps a model pool behind the SaberWorker gRPC service;
// the client side dispatches frames to a remote worker and hands back
// ordinary instance masks.
package worker

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/saber-data/saber/internal/sam2"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/worker/pb"
)

// Interface guard
var _ pb.SaberWorkerServer = (*Server)(nil)

// ServerConfig holds the server's model pool and segmentation defaults.
// Requests may override GridSize and the filter settings per call.
type ServerConfig struct {
	Pool     *sam2.Pool
	GridSize int
	Filter   segment.FilterOptions
	Device   string // reported by Status, e.g. "cuda:0" or "cpu"
}

// Server implements the SaberWorker gRPC service.
type Server struct {
	pb.UnimplementedSaberWorkerServer

	cfg     ServerConfig
	started time.Time
	run     runFunc
}

type runFunc func(ctx context.Context, data []float32, w, h, grid int, opts segment.FilterOptions) ([]*segment.Mask, error)

// NewServer creates a worker server around a model pool.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{cfg: cfg, started: time.Now()}
	s.run = func(ctx context.Context, data []float32, w, h, grid int, opts segment.FilterOptions) ([]*segment.Mask, error) {
		eng := &segment.Engine{Pool: cfg.Pool, GridSize: grid, Filter: opts}
		return eng.SegmentImage(ctx, data, w, h)
	}
	return s
}

// Segment runs grid-prompted segmentation on one frame.
func (s *Server) Segment(ctx context.Context, req *pb.SegmentRequest) (*pb.SegmentResponse, error) {
	w, h := int(req.Width), int(req.Height)
	if w <= 0 || h <= 0 || len(req.Image) != w*h {
		return nil, status.Errorf(codes.InvalidArgument,
			"image has %d values for a %dx%d frame", len(req.Image), w, h)
	}

	grid := int(req.GridSize)
	if grid <= 0 {
		grid = s.cfg.GridSize
	}
	opts := s.cfg.Filter
	if req.MinArea > 0 {
		opts.MinArea = int(req.MinArea)
	}
	if req.BorderMargin > 0 {
		opts.BorderMargin = int(req.BorderMargin)
	}
	if req.DedupIou > 0 {
		opts.DedupIoU = float64(req.DedupIou)
	}

	start := time.Now()
	masks, err := s.run(ctx, req.Image, w, h, grid, opts)
	if err != nil {
		log.Printf("[gRPC] Segment %dx%d failed: %v", w, h, err)
		return nil, status.Errorf(codes.Internal, "segmentation failed: %v", err)
	}
	log.Printf("[gRPC] Segment %dx%d -> %d masks in %v",
		w, h, len(masks), time.Since(start).Round(time.Millisecond))
	return masksToProto(masks, w, h), nil
}

// Status reports readiness, the serving device, and pool size.
func (s *Server) Status(ctx context.Context, req *pb.StatusRequest) (*pb.StatusResponse, error) {
	models := 0
	if s.cfg.Pool != nil {
		models = s.cfg.Pool.Size()
	}
	device := s.cfg.Device
	if device == "" {
		device = "cpu"
	}
	return &pb.StatusResponse{
		Ready:         models > 0,
		Device:        device,
		Models:        int32(models),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}, nil
}

// RegisterService registers the worker service with a gRPC server
func RegisterService(grpcServer *grpc.Server, server *Server) {
	pb.RegisterSaberWorkerServer(grpcServer, server)
}

// Serve listens on addr and serves the worker until the context is
// canceled, then stops gracefully.
func Serve(ctx context.Context, addr string, server *Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	RegisterService(grpcServer, server)

	go func() {
		<-ctx.Done()
		log.Printf("[gRPC] stopping worker...")
		grpcServer.GracefulStop()
	}()

	log.Printf("[gRPC] worker listening on %s", lis.Addr())
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
