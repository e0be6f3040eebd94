package worker

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/worker/pb"
)

// testContext stands in for t.Context(), which needs Go 1.24+.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func rectBits(w, h, x0, y0, x1, y1 int) []uint8 {
	bits := make([]uint8, w*h)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			bits[y*w+x] = 1
		}
	}
	return bits
}

// startWorker serves srv over an in-memory link and returns a connected
// client.
func startWorker(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	RegisterService(grpcServer, srv)
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(dialer))
	if err != nil {
		t.Fatalf("dialing worker: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSegmentRoundTrip(t *testing.T) {
	const w, h = 10, 8
	srv := NewServer(ServerConfig{Device: "cpu"})
	srv.run = func(ctx context.Context, data []float32, rw, rh, grid int, opts segment.FilterOptions) ([]*segment.Mask, error) {
		return []*segment.Mask{
			{ID: 1, Bits: rectBits(rw, rh, 2, 1, 5, 4), W: rw, H: rh, Score: 0.9},
			{ID: 2, Bits: rectBits(rw, rh, 7, 5, 9, 7), W: rw, H: rh, Score: 0.7},
		}, nil
	}
	client := startWorker(t, srv)

	masks, err := client.Segment(testContext(t), make([]float32, w*h), w, h, SegmentOptions{})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(masks) != 2 {
		t.Fatalf("got %d masks, want 2", len(masks))
	}
	m := masks[0]
	if m.ID != 1 || m.Score != 0.9 {
		t.Errorf("mask = id %d score %v, want id 1 score 0.9", m.ID, m.Score)
	}
	// 4x4 rectangle, area and bbox recomputed from the bitmap.
	if m.Area != 16 {
		t.Errorf("area = %d, want 16", m.Area)
	}
	if m.MinX != 2 || m.MinY != 1 || m.MaxX != 5 || m.MaxY != 4 {
		t.Errorf("bbox = (%d,%d)-(%d,%d), want (2,1)-(5,4)", m.MinX, m.MinY, m.MaxX, m.MaxY)
	}
}

func TestSegmentOverrides(t *testing.T) {
	srv := NewServer(ServerConfig{
		GridSize: 16,
		Filter:   segment.FilterOptions{MinArea: 50, BorderMargin: 2, DedupIoU: 0.75},
	})
	var gotGrid int
	var gotOpts segment.FilterOptions
	srv.run = func(ctx context.Context, data []float32, rw, rh, grid int, opts segment.FilterOptions) ([]*segment.Mask, error) {
		gotGrid, gotOpts = grid, opts
		return nil, nil
	}
	client := startWorker(t, srv)

	// Defaults apply when the request leaves settings at zero.
	if _, err := client.Segment(testContext(t), make([]float32, 16), 4, 4, SegmentOptions{}); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if gotGrid != 16 || gotOpts.MinArea != 50 || gotOpts.BorderMargin != 2 || gotOpts.DedupIoU != 0.75 {
		t.Errorf("defaults: grid=%d opts=%+v", gotGrid, gotOpts)
	}

	// Per-request settings win.
	_, err := client.Segment(testContext(t), make([]float32, 16), 4, 4,
		SegmentOptions{GridSize: 8, MinArea: 10, BorderMargin: 1, DedupIoU: 0.5})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if gotGrid != 8 || gotOpts.MinArea != 10 || gotOpts.BorderMargin != 1 || gotOpts.DedupIoU != 0.5 {
		t.Errorf("overrides: grid=%d opts=%+v", gotGrid, gotOpts)
	}
}

func TestSegmentRejectsBadDimensions(t *testing.T) {
	srv := NewServer(ServerConfig{})
	client := startWorker(t, srv)

	_, err := client.Segment(testContext(t), make([]float32, 10), 4, 4, SegmentOptions{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("error code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestStatus(t *testing.T) {
	srv := NewServer(ServerConfig{Device: "cuda:0"})
	srv.started = time.Now().Add(-5 * time.Second)
	client := startWorker(t, srv)

	resp, err := client.Status(testContext(t))
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	// No pool configured, so the worker is up but not ready.
	if resp.Ready {
		t.Error("ready = true without a model pool")
	}
	if resp.Device != "cuda:0" {
		t.Errorf("device = %q, want cuda:0", resp.Device)
	}
	if resp.UptimeSeconds < 5 {
		t.Errorf("uptime = %ds, want >= 5", resp.UptimeSeconds)
	}
}

func TestMasksFromProtoSkipsMalformed(t *testing.T) {
	resp := &pb.SegmentResponse{
		Width:  4,
		Height: 4,
		Masks: []*pb.InstanceMask{
			{Id: 1, Bits: make([]uint8, 16)},
			{Id: 2, Bits: make([]uint8, 3)}, // wrong length
		},
	}
	masks := masksFromProto(resp)
	if len(masks) != 1 || masks[0].ID != 1 {
		t.Errorf("got %d masks, want just the well-formed one", len(masks))
	}
}
