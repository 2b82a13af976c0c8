package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "zero norm", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashingEmbedder(t *testing.T) {
	t.Parallel()

	e := NewHashing(64, map[string]struct{}{"the": {}})
	ctx := context.Background()

	a, err := e.Embed(ctx, "Polymorphism lets the same interface serve many types")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _ := e.Embed(ctx, "polymorphism lets the same interface serve many types")
	c, _ := e.Embed(ctx, "Redis persists keys to disk with snapshots")

	if len(a) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(a))
	}
	if sim := Cosine(a, b); math.Abs(sim-1) > 1e-9 {
		t.Fatalf("case-insensitive equal texts should match, got %v", sim)
	}
	if Cosine(a, c) >= Cosine(a, b) {
		t.Fatalf("unrelated text should be less similar")
	}

	empty, _ := e.Embed(ctx, "the")
	if Cosine(empty, a) != 0 {
		t.Fatalf("stopword-only text should embed to the zero vector")
	}

	if NewHashing(0, nil).Dimension() != defaultHashingDimension {
		t.Fatalf("expected default dimension")
	}
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Embed(context.Context, string) ([]float64, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float64{1, 2}, nil
}

type mapStore struct {
	values map[string][]float64
	getErr error
	setErr error
}

func (m *mapStore) Get(_ context.Context, key string, dest any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]float64) = v
	return true, nil
}

func (m *mapStore) Set(_ context.Context, key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value.([]float64)
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	store := &mapStore{values: map[string][]float64{}}
	cached := NewCached(inner, store, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		vec, err := cached.Embed(ctx, "text")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vec) != 2 {
			t.Fatalf("unexpected vector %v", vec)
		}
	}

	if inner.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls)
	}
	if cached.Name() != "counting" {
		t.Fatalf("unexpected name %q", cached.Name())
	}
}

func TestCachedEmbedderToleratesCacheErrors(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	store := &mapStore{values: map[string][]float64{}, getErr: errors.New("down"), setErr: errors.New("down")}
	cached := NewCached(inner, store, nil)

	if _, err := cached.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("cache errors must not fail embedding: %v", err)
	}

	inner.err = errors.New("provider down")
	if _, err := cached.Embed(context.Background(), "text"); err == nil {
		t.Fatalf("expected provider error to surface")
	}
}
