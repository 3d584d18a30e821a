// Package examplejob is a minimal reference job wired into cmd/reducetask and
// cmd/maptask: state is a single decimal-encoded float64, Combine sums incoming
// deltas, Update folds iState into cState and re-emits iState unchanged as the
// downstream delta, and the activator simply forwards a popped record's iState back
// out under the same key. It exists so the two process entry points have a concrete
// StateCodec/Activator pair to run rather than leaving that plumbing abstract — the
// specification explicitly treats user activation/update callbacks as external to the
// engine, so a real deployment would swap this package out for its own.
package examplejob

import (
	"strconv"

	"github.com/scusemua/priter/internal/mapside"
	"github.com/scusemua/priter/internal/reduceside"
)

// SumCodec implements reduceside.StateCodec over decimal-encoded float64 strings.
type SumCodec struct{}

func EncodeFloat(f float64) []byte { return []byte(strconv.FormatFloat(f, 'f', -1, 64)) }

func DecodeFloat(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

func (SumCodec) Combine(existing, delta []byte) []byte {
	return EncodeFloat(DecodeFloat(existing) + DecodeFloat(delta))
}

func (SumCodec) Update(_ reduceside.Key, iState, cState []byte) ([]byte, []byte) {
	return EncodeFloat(DecodeFloat(cState) + DecodeFloat(iState)), iState
}

func (SumCodec) Priority(iState []byte) float64 { return DecodeFloat(iState) }
func (SumCodec) Numeric(cState []byte) float64  { return DecodeFloat(cState) }

// EchoActivator forwards a popped record's iState back out unchanged as the delta for
// the same key, completing the round trip a SumCodec-driven reducer expects.
func EchoActivator(key mapside.Key, iState []byte, emit mapside.Emit) {
	emit(key, iState)
}
