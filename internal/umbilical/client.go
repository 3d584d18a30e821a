package umbilical

import (
	"context"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a task's handle onto its host runtime's umbilical, mirroring
// gateway/daemon/notifier.go's thin wrapper-over-*grpc.ClientConn shape.
type Client struct {
	conn *grpc.ClientConn

	log logger.Logger
}

// Dial connects to a host runtime's umbilical at addr (priter.umbilical.addr).
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn}
	config.InitLogger(&c.log, c)

	return c, nil
}

func (c *Client) String() string {
	return "UmbilicalClient[" + c.conn.Target() + "]"
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp)
}

// StatusUpdate reports the calling task's current phase and iteration.
func (c *Client) StatusUpdate(ctx context.Context, req *StatusUpdateRequest) (*StatusUpdateResponse, error) {
	resp := new(StatusUpdateResponse)
	if err := c.invoke(ctx, "StatusUpdate", req, resp); err != nil {
		c.log.Error("StatusUpdate to host runtime failed: %v", err)
		return nil, err
	}
	return resp, nil
}

// Ping is a liveness probe answered by the host runtime.
func (c *Client) Ping(ctx context.Context, req *PingRequest) (*PongResponse, error) {
	resp := new(PongResponse)
	if err := c.invoke(ctx, "Ping", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Done notifies the host runtime the calling task has terminated.
func (c *Client) Done(ctx context.Context, req *DoneRequest) (*DoneResponse, error) {
	resp := new(DoneResponse)
	if err := c.invoke(ctx, "Done", req, resp); err != nil {
		c.log.Error("Done notification to host runtime failed: %v", err)
		return nil, err
	}
	return resp, nil
}

// SnapshotCommit notifies the host runtime a reduce task has persisted a snapshot.
func (c *Client) SnapshotCommit(ctx context.Context, req *SnapshotCommitRequest) (*SnapshotCommitResponse, error) {
	resp := new(SnapshotCommitResponse)
	if err := c.invoke(ctx, "SnapshotCommit", req, resp); err != nil {
		c.log.Error("SnapshotCommit notification to host runtime failed: %v", err)
		return nil, err
	}
	return resp, nil
}

// AfterIterCommit notifies the host runtime an iteration's output has been durably
// exchanged.
func (c *Client) AfterIterCommit(ctx context.Context, req *AfterIterCommitRequest) (*AfterIterCommitResponse, error) {
	resp := new(AfterIterCommitResponse)
	if err := c.invoke(ctx, "AfterIterCommit", req, resp); err != nil {
		c.log.Error("AfterIterCommit notification to host runtime failed: %v", err)
		return nil, err
	}
	return resp, nil
}

// RollbackCheck asks the host runtime whether this task should reload from its last
// committed snapshot before continuing.
func (c *Client) RollbackCheck(ctx context.Context, req *RollbackCheckRequest) (*RollbackCheckResponse, error) {
	resp := new(RollbackCheckResponse)
	if err := c.invoke(ctx, "RollbackCheck", req, resp); err != nil {
		c.log.Error("RollbackCheck query to host runtime failed: %v", err)
		return nil, err
	}
	return resp, nil
}
