package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_AppendAndOrder(t *testing.T) {
	s := newSeries("cpu", 5, 0)

	assert.True(t, s.Append(100, 1))
	assert.True(t, s.Append(200, 2))
	assert.True(t, s.Append(200, 3), "equal timestamps are allowed")
	assert.False(t, s.Append(150, 4), "older timestamps are rejected")

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{1, 2, 3}, s.Values(0))

	last, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, Sample{Timestamp: 200, Value: 3}, last)
}

func TestSeries_CapacityWrap(t *testing.T) {
	s := newSeries("cpu", 3, 0)
	for i := 1; i <= 5; i++ {
		s.Append(int64(i), float64(i))
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{3, 4, 5}, s.Values(0))
	assert.Equal(t, []float64{4, 5}, s.Values(2))
	assert.Equal(t, []float64{3, 4, 5}, s.Values(10))

	oldest, _ := s.Oldest()
	assert.Equal(t, int64(3), oldest.Timestamp)
}

func TestSeries_Empty(t *testing.T) {
	s := newSeries("cpu", 0, time.Second)

	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Values(5))
	assert.Empty(t, s.Samples())
	assert.Equal(t, 0.0, s.Max())
	_, ok := s.Latest()
	assert.False(t, ok)
	_, ok = s.Oldest()
	assert.False(t, ok)
	assert.Equal(t, DefaultCapacity, len(s.data))
}

func TestSeries_WindowEviction(t *testing.T) {
	s := newSeries("ram", 100, 10*time.Second)

	s.Append(0, 1)
	s.Append(5_000, 2)
	s.Append(10_000, 3)
	assert.Equal(t, 3, s.Len(), "a sample exactly at the horizon is kept")

	s.Append(12_000, 4)
	assert.Equal(t, []float64{2, 3, 4}, s.Values(0))

	s.Append(60_000, 5)
	assert.Equal(t, []float64{5}, s.Values(0), "a long gap evicts everything older")
}

func TestSeries_RetentionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	window := 2 * time.Second

	for run := 0; run < 50; run++ {
		s := newSeries("x", 1000, window)
		var ts int64
		for i := 0; i < 500; i++ {
			ts += int64(rng.Intn(300))
			s.Append(ts, rng.Float64()*100)

			oldest, ok := s.Oldest()
			require.True(t, ok)
			latest, _ := s.Latest()
			require.GreaterOrEqual(t, oldest.Timestamp, latest.Timestamp-window.Milliseconds(),
				"oldest sample must stay inside the window (run %d, step %d)", run, i)
		}
	}
}

func TestSeries_Max(t *testing.T) {
	s := newSeries("x", 10, 0)
	s.Append(1, -5)
	s.Append(2, -2)
	assert.Equal(t, -2.0, s.Max())
	s.Append(3, 7)
	assert.Equal(t, 7.0, s.Max())
}

func TestNiceCeiling(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{47, 50},
		{340, 400},
		{100, 100},
		{101, 200},
		{9.5, 10},
		{1, 1},
		{0.47, 0.5},
		{0.3, 0.3},
		{12_345, 20_000},
		{0, 0},
		{-3, 0},
	}

	for _, tt := range tests {
		got := NiceCeiling(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "NiceCeiling(%v)", tt.in)
	}
}

func TestNiceCeiling_AlwaysAdequate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10_000; i++ {
		v := rng.ExpFloat64() * float64(rng.Intn(10_000)+1)
		bound := NiceCeiling(v)
		require.GreaterOrEqual(t, bound, v)
		require.Less(t, bound, v*10+1e-9, "bound stays within one order of magnitude")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		value float64
		max   float64
		want  Level
	}{
		{0, 100, LevelNominal},
		{33, 100, LevelNominal},
		{34, 100, LevelWarning},
		{74, 100, LevelWarning},
		{75, 100, LevelAlert},
		{120, 100, LevelAlert},
		{50, 0, LevelNominal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.value, tt.max), "LevelFor(%v, %v)", tt.value, tt.max)
	}
	assert.Equal(t, "alert", LevelAlert.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "nominal", LevelNominal.String())
}

func TestStore_FirstResponseFixesKeys(t *testing.T) {
	st := NewStore(Options{Window: time.Minute})

	n := st.Observe(1000, payload.MustParse(`{"core0": 10, "core1": 20}`).Chart())
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"core0", "core1"}, st.Keys())

	n = st.Observe(2000, payload.MustParse(`{"core0": 11, "core1": 21, "core2": 30}`).Chart())
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"core0", "core1"}, st.Keys(), "a later key does not create a third series")
	assert.Nil(t, st.Series("core2"))
	assert.Equal(t, []string{"core2"}, st.Ignored())

	// A response missing a line only skips that line.
	n = st.Observe(3000, payload.MustParse(`{"core1": 22}`).Chart())
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, st.Series("core0").Len())
	assert.Equal(t, 3, st.Series("core1").Len())
}

func TestStore_DefineOnce(t *testing.T) {
	st := NewStore(Options{})
	assert.False(t, st.Define())
	assert.True(t, st.Define("value", "value"))
	assert.Equal(t, []string{"value"}, st.Keys())
	assert.False(t, st.Define("other"))

	assert.True(t, st.Append("value", 1, 5))
	assert.False(t, st.Append("other", 1, 5))
}

func TestStore_ScaleFollowsWindow(t *testing.T) {
	st := NewStore(Options{Window: 10 * time.Second})
	st.Define("rx", "tx")

	st.Append("rx", 0, 340)
	st.Append("tx", 0, 12)
	assert.Equal(t, 400.0, st.Scale())
	assert.Equal(t, 340.0, st.Max())

	// The peak is still visible, the bound holds.
	st.Append("rx", 5_000, 40)
	assert.Equal(t, 400.0, st.Scale())

	// Once the peak leaves the window the bound follows the new max.
	st.Append("rx", 11_000, 47)
	assert.Equal(t, 50.0, st.Scale())
}

func TestStore_ScaleProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	st := NewStore(Options{Window: 5 * time.Second, MinScale: 10})
	st.Define("a", "b")

	var ts int64
	for i := 0; i < 2000; i++ {
		ts += int64(rng.Intn(500))
		key := "a"
		if rng.Intn(2) == 0 {
			key = "b"
		}
		st.Append(key, ts, rng.Float64()*float64(rng.Intn(1000)))

		bound := st.Scale()
		require.GreaterOrEqual(t, bound, st.Max(), "bound below the visible max at step %d", i)
		require.GreaterOrEqual(t, bound, 10.0)
	}
}

func TestStore_MinScale(t *testing.T) {
	st := NewStore(Options{MinScale: 100})
	st.Define("1_min_avg")
	assert.Equal(t, 100.0, st.Scale(), "empty store uses the floor")

	st.Append("1_min_avg", 1, 3)
	assert.Equal(t, 100.0, st.Scale())

	st.Append("1_min_avg", 2, 250)
	assert.Equal(t, 300.0, st.Scale())
}

func TestStore_Metrics(t *testing.T) {
	st := NewStore(Options{})
	st.Define("eth0", "lo")
	st.Append("eth0", 1, 12.5)

	assert.Equal(t, []Metric{{Name: "eth0", Data: "12.5 KB/s"}}, st.Metrics(" KB/s"))

	st.Append("lo", 1, 3)
	assert.Equal(t, []Metric{
		{Name: "eth0", Data: "12.5 KB/s"},
		{Name: "lo", Data: "3 KB/s"},
	}, st.Metrics(" KB/s"))
}

func TestStore_Snapshot(t *testing.T) {
	st := NewStore(Options{Capacity: 10})
	st.Define("a")
	for i := 0; i < 5; i++ {
		st.Append("a", int64(i), float64(i*10))
	}

	snap := st.Snapshot(3)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, []float64{20, 30, 40}, snap.Lines[0].Values)
	assert.Equal(t, 40.0, snap.Lines[0].Latest)
	assert.Equal(t, 40.0, snap.Max)
	assert.Equal(t, 40.0, snap.Scale)

	// The snapshot is a copy.
	snap.Lines[0].Values[0] = -1
	assert.Equal(t, []float64{20, 30, 40}, st.Series("a").Values(3))
}
