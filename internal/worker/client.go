package worker

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/worker/pb"
)

// SegmentOptions are per-request overrides. Zero values fall back to the
// worker's configured defaults.
type SegmentOptions struct {
	GridSize     int
	MinArea      int
	BorderMargin int
	DedupIoU     float64
}

// Client talks to a remote worker.
type Client struct {
	conn *grpc.ClientConn
	cli  pb.SaberWorkerClient
}

// Dial connects to a worker at target, e.g. "gpu-box:9090". The link is
// plaintext; workers are expected to sit on a trusted network.
func Dial(target string, extra ...grpc.DialOption) (*Client, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, extra...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to worker %s: %w", target, err)
	}
	return &Client{conn: conn, cli: pb.NewSaberWorkerClient(conn)}, nil
}

// Segment sends one normalized grayscale frame to the worker and returns
// the instance masks it found.
func (c *Client) Segment(ctx context.Context, data []float32, w, h int, opts SegmentOptions) ([]*segment.Mask, error) {
	resp, err := c.cli.Segment(ctx, &pb.SegmentRequest{
		Image:        data,
		Width:        int32(w),
		Height:       int32(h),
		GridSize:     int32(opts.GridSize),
		MinArea:      int32(opts.MinArea),
		BorderMargin: int32(opts.BorderMargin),
		DedupIou:     float32(opts.DedupIoU),
	})
	if err != nil {
		return nil, fmt.Errorf("remote segmentation: %w", err)
	}
	return masksFromProto(resp), nil
}

// Status queries the worker's readiness.
func (c *Client) Status(ctx context.Context) (*pb.StatusResponse, error) {
	resp, err := c.cli.Status(ctx, &pb.StatusRequest{})
	if err != nil {
		return nil, fmt.Errorf("querying worker status: %w", err)
	}
	return resp, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
