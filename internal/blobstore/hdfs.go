package blobstore

import (
	"context"
	"io"
	"net"
	"path"
	"time"

	"github.com/colinmarc/hdfs/v2"
	"go.uber.org/zap"
)

const defaultHdfsUsername = "priter"

// HdfsProvider backs the blobstore with an HDFS cluster, the canonical backing for the
// `<outDir>/snapshot-<id>/part-<reduceId>` and `<inDir>/subgraph/part<partId>` layout.
type HdfsProvider struct {
	*baseProvider

	hdfsUsername string
	hdfsClient   *hdfs.Client
	replication  int
}

// NewHdfsProvider returns an HdfsProvider that will dial the NameNode at hostname.
func NewHdfsProvider(hostname string) *HdfsProvider {
	return &HdfsProvider{
		baseProvider: newBaseProvider(hostname, 0),
		hdfsUsername: defaultHdfsUsername,
		replication:  3,
	}
}

// SetHdfsUsername overrides the username used to connect to HDFS. Has no effect once
// already connected; call before Connect.
func (p *HdfsProvider) SetHdfsUsername(user string) {
	p.hdfsUsername = user
}

// SetReplication overrides the replication factor reported by Replication. It does not
// affect files already written.
func (p *HdfsProvider) SetReplication(r int) {
	p.replication = r
}

func (p *HdfsProvider) Connect(ctx context.Context) error {
	p.status = Connecting
	p.sugaredLogger.Debugw("Connecting to HDFS", "hostname", p.hostname)

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: []string{p.hostname},
		User:      p.hdfsUsername,
		NamenodeDialFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			conn, dialErr := (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext(ctx, network, address)
			if dialErr != nil {
				p.sugaredLogger.Errorw("Failed to dial HDFS NameNode", "address", address, "error", dialErr)
				return nil, dialErr
			}
			return conn, nil
		},
		DatanodeDialFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			childCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			conn, dialErr := (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, DualStack: true}).DialContext(childCtx, network, address)
			if dialErr != nil {
				p.sugaredLogger.Errorw("Failed to dial HDFS DataNode", "address", address, "error", dialErr)
				return nil, dialErr
			}
			return conn, nil
		},
	})

	if err != nil {
		p.status = Disconnected
		p.logger.Error("Failed to create HDFS client", zap.String("hostname", p.hostname), zap.Error(err))
		return err
	}

	p.hdfsClient = client
	p.status = Connected

	p.sugaredLogger.Infow("Connected to HDFS", "hostname", p.hostname)
	_ = ctx
	return nil
}

func (p *HdfsProvider) Close() error {
	if p.hdfsClient == nil {
		return nil
	}
	return p.hdfsClient.Close()
}

func (p *HdfsProvider) Replication() int {
	return p.replication
}

func (p *HdfsProvider) Open(_ context.Context, filePath string) (io.ReadCloser, error) {
	return p.hdfsClient.Open(filePath)
}

func (p *HdfsProvider) Create(_ context.Context, filePath string) (io.WriteCloser, error) {
	if err := p.hdfsClient.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	return p.hdfsClient.Create(filePath)
}

func (p *HdfsProvider) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := p.hdfsClient.ReadDir(prefix)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches = append(matches, path.Join(prefix, entry.Name()))
	}

	return matches, nil
}
