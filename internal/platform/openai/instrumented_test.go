package openai

import (
	"context"
	"errors"
	"testing"
)

type stubInner struct {
	out  [][]float32
	err  error
	last []string
}

func (s *stubInner) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	s.last = inputs
	return s.out, s.err
}

func (s *stubInner) ModelInfo() ModelInfo {
	return ModelInfo{Model: "test-embed", Dims: 3}
}

func TestInstrumentClientDelegates(t *testing.T) {
	inner := &stubInner{out: [][]float32{{1, 0, 0}}}
	wrapped := InstrumentClient(inner)

	out, err := wrapped.Embed(context.Background(), []string{"dopamine"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(out) != 1 || len(inner.last) != 1 || inner.last[0] != "dopamine" {
		t.Fatalf("call not delegated: out=%v inputs=%v", out, inner.last)
	}
	if wrapped.ModelInfo() != inner.ModelInfo() {
		t.Fatalf("model info not delegated")
	}
}

func TestInstrumentClientPropagatesErrors(t *testing.T) {
	wantErr := errors.New("provider down")
	wrapped := InstrumentClient(&stubInner{err: wantErr})

	if _, err := wrapped.Embed(context.Background(), []string{"x"}); !errors.Is(err, wantErr) {
		t.Fatalf("error not propagated: %v", err)
	}
}

func TestInstrumentClientNilInner(t *testing.T) {
	if got := InstrumentClient(nil); got != nil {
		t.Fatalf("wrapping nil should stay nil, got %T", got)
	}
}
