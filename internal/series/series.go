package series

import "time"

// Sample is one timestamped value. Timestamp is in milliseconds from the
// session's monotonic clock.
type Sample struct {
	Timestamp int64
	Value     float64
}

// Series is a ring buffer of samples for one chart line.
//
// Samples are kept in non-decreasing timestamp order. Appending evicts
// samples older than latest-window, and the buffer capacity bounds memory
// when ticks come faster than the window implies.
type Series struct {
	key    string
	data   []Sample
	head   int // next write position
	count  int
	window int64
}

func newSeries(key string, capacity int, window time.Duration) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		key:    key,
		data:   make([]Sample, capacity),
		window: window.Milliseconds(),
	}
}

// Key identifies the line within its store.
func (s *Series) Key() string {
	return s.key
}

// Len is the number of retained samples.
func (s *Series) Len() int {
	return s.count
}

// Append adds a sample. Samples older than the latest one are rejected.
func (s *Series) Append(ts int64, v float64) bool {
	if last, ok := s.Latest(); ok && ts < last.Timestamp {
		return false
	}

	s.data[s.head] = Sample{Timestamp: ts, Value: v}
	s.head = (s.head + 1) % len(s.data)
	if s.count < len(s.data) {
		s.count++
	}
	s.evict(ts)
	return true
}

// evict drops samples older than the window, oldest first.
func (s *Series) evict(latest int64) {
	if s.window <= 0 {
		return
	}
	cutoff := latest - s.window
	for s.count > 0 && s.at(0).Timestamp < cutoff {
		s.count--
	}
}

// at returns the i-th retained sample, 0 being the oldest.
func (s *Series) at(i int) Sample {
	start := (s.head - s.count + len(s.data)) % len(s.data)
	return s.data[(start+i)%len(s.data)]
}

// Latest returns the most recent sample.
func (s *Series) Latest() (Sample, bool) {
	if s.count == 0 {
		return Sample{}, false
	}
	return s.at(s.count - 1), true
}

// Oldest returns the oldest retained sample.
func (s *Series) Oldest() (Sample, bool) {
	if s.count == 0 {
		return Sample{}, false
	}
	return s.at(0), true
}

// Samples returns the retained samples, oldest first.
func (s *Series) Samples() []Sample {
	out := make([]Sample, s.count)
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

// Values returns up to the last n values in chronological order.
// n <= 0 returns every retained value.
func (s *Series) Values(n int) []float64 {
	if s.count == 0 {
		return nil
	}
	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]float64, n)
	offset := s.count - n
	for i := range out {
		out[i] = s.at(offset + i).Value
	}
	return out
}

// Max is the largest retained value, 0 when empty.
func (s *Series) Max() float64 {
	var max float64
	for i := 0; i < s.count; i++ {
		if v := s.at(i).Value; i == 0 || v > max {
			max = v
		}
	}
	return max
}
