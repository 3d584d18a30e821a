package job_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/blobstore"
	"github.com/scusemua/priter/internal/codec"
	"github.com/scusemua/priter/internal/job"
	"github.com/scusemua/priter/internal/mapside"
	"github.com/scusemua/priter/internal/partition"
	"github.com/scusemua/priter/internal/reduceside"
)

// echoCodec treats iState/cState as decimal-encoded float64 strings: Combine sums
// incoming deltas, Update folds iState into cState and re-emits iState itself as the
// downstream delta, matching scalarCodec's pattern in internal/reduceside's own tests.
type echoCodec struct{}

func encodeFloat(f float64) []byte { return []byte(strconv.FormatFloat(f, 'f', -1, 64)) }

func decodeFloat(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

func (echoCodec) Combine(existing, delta []byte) []byte {
	return encodeFloat(decodeFloat(existing) + decodeFloat(delta))
}

func (echoCodec) Update(_ reduceside.Key, iState, cState []byte) ([]byte, []byte) {
	return encodeFloat(decodeFloat(cState) + decodeFloat(iState)), iState
}

func (echoCodec) Priority(iState []byte) float64 { return decodeFloat(iState) }
func (echoCodec) Numeric(cState []byte) float64  { return decodeFloat(cState) }

// echoActivator forwards a popped record's iState back out unchanged as the delta for
// the same key, so a single round trip through the map side deposits its seeded value
// straight into the reducer's cState.
func echoActivator(key mapside.Key, iState []byte, emit mapside.Emit) {
	emit(key, iState)
}

// latestSnapshotValue globs every snapshot directory flushSnapshot has written for
// taskId beneath root, decodes the one with the highest snapshot id, and returns the
// Numeric value it recorded for key (or -1 if no snapshot yet mentions key).
func latestSnapshotValue(root, taskId, key string) float64 {
	matches, err := filepath.Glob(filepath.Join(root, "snapshot-*", "part-"+taskId))
	if err != nil || len(matches) == 0 {
		return -1
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
	latest := matches[len(matches)-1]

	f, err := os.Open(latest)
	if err != nil {
		return -1
	}
	defer func() { _ = f.Close() }()

	reader := codec.NewReader(codec.StaticRec, true, 0)
	if err := reader.Load(f); err != nil {
		return -1
	}

	for {
		k, cState, eof, err := reader.ReadStaticRec()
		if err != nil || eof {
			return -1
		}
		if string(k) == key {
			return decodeFloat(cState)
		}
	}
}

var _ = Describe("ReduceTask and MapTask wired over loopback", func() {
	It("round-trips a seeded activation into the reducer's cState", func() {
		root, err := os.MkdirTemp("", "priter-job-test-*")
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = os.RemoveAll(root) }()

		cfg := &job.Config{
			JobId:                  "testjob",
			GraphPartitions:        1,
			GraphNodes:             1,
			SnapshotIntervalMillis: 0,
			SnapshotTopK:           10,
			QueueUniqLength:        1,
			StopDifference:         0.0001,
			StopMaxTimeMs:          60000,
			MaxConnections:         10,
		}

		seedProvider := blobstore.NewLocalProvider(root)
		wc, err := seedProvider.Create(context.Background(), "testjob/subgraph/part0")
		Expect(err).ToNot(HaveOccurred())
		writer := codec.NewWriter(codec.PQRec, true)
		Expect(writer.AppendPQRec([]byte("k"), nil, []byte("static"))).To(Succeed())
		Expect(writer.Close(wc)).To(Succeed())
		Expect(wc.Close()).To(Succeed())

		reduceTask := job.NewReduceTask("reduce-0", echoCodec{})
		reduceTask.PartitionId = 0
		reduceTask.Provider = blobstore.NewLocalProvider(root)
		Expect(reduceTask.Init(cfg)).To(Succeed())

		mapTask := job.NewMapTask("map-0", 0, echoActivator, partition.NewHashPartitioner(1))
		mapTask.Provider = blobstore.NewLocalProvider(root)
		Expect(mapTask.Init(cfg)).To(Succeed())

		Expect(reduceTask.AddMapDestination(job.MapDestination{
			TaskId:      "map-0",
			PKVAddr:     mapTask.PKVAddr(),
			StreamAddr:  mapTask.StreamAddr(),
			PartitionId: 0,
		})).To(Succeed())

		mapTask.AddReduceDestination(job.ReduceDestination{
			TaskId:      "reduce-0",
			PKVAddr:     reduceTask.PKVAddr(),
			StreamAddr:  reduceTask.StreamAddr(0),
			PartitionId: 0,
		})

		mapTask.Seed("k", encodeFloat(10))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reduceHandle, err := reduceTask.Submit(ctx)
		Expect(err).ToNot(HaveOccurred())
		mapHandle, err := mapTask.Submit(ctx)
		Expect(err).ToNot(HaveOccurred())

		reduceTask.Kickoff()

		Eventually(func() float64 {
			return latestSnapshotValue(root, "reduce-0", "k")
		}, 5*time.Second, 50*time.Millisecond).Should(BeNumerically(">", 0))

		cancel()
		_ = reduceHandle.Wait()
		_ = mapHandle.Wait()
	})
})
