package umbilical_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/priter/internal/umbilical"
)

// fakeServer records the last request it received per method, for assertion.
type fakeServer struct {
	lastStatusUpdate *umbilical.StatusUpdateRequest
	lastDone         *umbilical.DoneRequest
	rollbackDecision umbilical.RollbackCheckResponse
}

func (f *fakeServer) StatusUpdate(_ context.Context, req *umbilical.StatusUpdateRequest) (*umbilical.StatusUpdateResponse, error) {
	f.lastStatusUpdate = req
	return &umbilical.StatusUpdateResponse{Ok: true}, nil
}

func (f *fakeServer) Ping(_ context.Context, req *umbilical.PingRequest) (*umbilical.PongResponse, error) {
	return &umbilical.PongResponse{TaskId: req.TaskId}, nil
}

func (f *fakeServer) Done(_ context.Context, req *umbilical.DoneRequest) (*umbilical.DoneResponse, error) {
	f.lastDone = req
	return &umbilical.DoneResponse{Ok: true}, nil
}

func (f *fakeServer) SnapshotCommit(_ context.Context, _ *umbilical.SnapshotCommitRequest) (*umbilical.SnapshotCommitResponse, error) {
	return &umbilical.SnapshotCommitResponse{Ok: true}, nil
}

func (f *fakeServer) AfterIterCommit(_ context.Context, _ *umbilical.AfterIterCommitRequest) (*umbilical.AfterIterCommitResponse, error) {
	return &umbilical.AfterIterCommitResponse{Ok: true}, nil
}

func (f *fakeServer) RollbackCheck(_ context.Context, _ *umbilical.RollbackCheckRequest) (*umbilical.RollbackCheckResponse, error) {
	decision := f.rollbackDecision
	return &decision, nil
}

var _ = Describe("Umbilical", func() {
	var (
		srv    *fakeServer
		host   *umbilical.HostRuntime
		client *umbilical.Client
	)

	BeforeEach(func() {
		srv = &fakeServer{}

		var err error
		host, err = umbilical.NewHostRuntime("127.0.0.1:0", srv)
		Expect(err).NotTo(HaveOccurred())

		go func() { _ = host.Serve() }()

		client, err = umbilical.Dial(host.Addr().String())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = client.Close()
		host.Stop()
	})

	It("round-trips a StatusUpdate call", func() {
		resp, err := client.StatusUpdate(context.Background(), &umbilical.StatusUpdateRequest{
			TaskId:    "reduce-0",
			Phase:     "selecting",
			Iteration: 3,
			Message:   "top-k selected",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Ok).To(BeTrue())
		Expect(srv.lastStatusUpdate.TaskId).To(Equal("reduce-0"))
		Expect(srv.lastStatusUpdate.Iteration).To(Equal(int64(3)))
	})

	It("round-trips a Ping call", func() {
		resp, err := client.Ping(context.Background(), &umbilical.PingRequest{TaskId: "map-2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.TaskId).To(Equal("map-2"))
	})

	It("round-trips a Done call", func() {
		resp, err := client.Done(context.Background(), &umbilical.DoneRequest{
			TaskId:         "reduce-0",
			FinalIteration: 17,
			Converged:      true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Ok).To(BeTrue())
		Expect(srv.lastDone.FinalIteration).To(Equal(int64(17)))
	})

	It("round-trips a RollbackCheck call carrying a rollback decision", func() {
		srv.rollbackDecision = umbilical.RollbackCheckResponse{ShouldRollback: true, Checkpoint: 42}

		resp, err := client.RollbackCheck(context.Background(), &umbilical.RollbackCheckRequest{TaskId: "reduce-0"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.ShouldRollback).To(BeTrue())
		Expect(resp.Checkpoint).To(Equal(int64(42)))
	})
})
