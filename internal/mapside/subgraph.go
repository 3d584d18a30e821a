package mapside

import (
	"bufio"
	"context"
	"fmt"

	"github.com/scusemua/priter/internal/blobstore"
	"github.com/scusemua/priter/internal/codec"
)

// loadSubgraph reads the static-partition blob at
// "<inDir>/subgraph/part<subgraphPartitionId>" (spec.md §6's persisted blob-store
// layout) and returns its PQRec entries as a key -> staticData map held in memory for
// the lifetime of the map task.
func loadSubgraph(ctx context.Context, provider blobstore.Provider, inDir string, subgraphPartitionId int) (map[Key][]byte, error) {
	path := fmt.Sprintf("%s/subgraph/part%d", inDir, subgraphPartitionId)

	rc, err := provider.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	reader := codec.NewReader(codec.PQRec, true, 0)
	if err := reader.Load(bufio.NewReader(rc)); err != nil {
		return nil, err
	}

	static := make(map[Key][]byte)
	for {
		key, _, staticData, eof, err := reader.ReadPQRec()
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		static[string(key)] = staticData
	}

	return static, nil
}
