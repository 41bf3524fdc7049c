package storage

import (
	"sort"
)

// DefaultPollWindow is the number of entries returned by a poll when no
// window is configured.
const DefaultPollWindow = 10

// Entry is a single message in a keyed log.
type Entry struct {
	Offset int64
	Msg    int64
}

// keyLog is the log for one key: entries ordered by offset plus the
// committed high-water mark.
type keyLog struct {
	msgs      map[int64]int64 // offset -> msg
	offsets   []int64         // sorted
	committed int64
}

func newKeyLog() *keyLog {
	return &keyLog{msgs: make(map[int64]int64)}
}

func (l *keyLog) insert(offset, msg int64) bool {
	if _, exists := l.msgs[offset]; exists {
		return false
	}
	l.msgs[offset] = msg

	idx := sort.Search(len(l.offsets), func(i int) bool { return l.offsets[i] >= offset })
	l.offsets = append(l.offsets, 0)
	copy(l.offsets[idx+1:], l.offsets[idx:])
	l.offsets[idx] = offset
	return true
}

func (l *keyLog) last() int64 {
	if len(l.offsets) == 0 {
		return 0
	}
	return l.offsets[len(l.offsets)-1]
}

// Logs holds an append-only log per key. Offsets are positive and strictly
// increasing per key on the node that assigns them. Logs is not safe for
// concurrent use; it is owned by the node's handler goroutine.
type Logs struct {
	logs map[string]*keyLog
}

// NewLogs creates an empty set of logs.
func NewLogs() *Logs {
	return &Logs{logs: make(map[string]*keyLog)}
}

func (s *Logs) log(key string) *keyLog {
	l, ok := s.logs[key]
	if !ok {
		l = newKeyLog()
		s.logs[key] = l
	}
	return l
}

// Append stores msg under the next offset for key and returns that offset.
// Offsets are striped across the cluster: a node in slot of stride nodes
// only assigns offsets congruent to slot modulo stride, so two nodes never
// assign the same offset to different messages. The new offset is always
// greater than every offset already present for key.
func (s *Logs) Append(key string, msg int64, slot, stride int) int64 {
	if stride <= 0 {
		stride, slot = 1, 0
	}
	l := s.log(key)
	next := l.last() + 1
	st, sl := int64(stride), int64(slot)
	next += ((sl-next%st)%st + st) % st
	l.insert(next, msg)
	return next
}

// Insert stores msg at an explicit offset. It reports false and keeps the
// existing message if the offset is already taken.
func (s *Logs) Insert(key string, offset, msg int64) bool {
	return s.log(key).insert(offset, msg)
}

// Has reports whether key has an entry at offset.
func (s *Logs) Has(key string, offset int64) bool {
	l, ok := s.logs[key]
	if !ok {
		return false
	}
	_, ok = l.msgs[offset]
	return ok
}

// Poll returns up to window entries of key with offset >= from, in offset
// order. Commit state does not affect polling.
func (s *Logs) Poll(key string, from int64, window int) []Entry {
	if window <= 0 {
		window = DefaultPollWindow
	}
	l, ok := s.logs[key]
	if !ok {
		return []Entry{}
	}
	idx := sort.Search(len(l.offsets), func(i int) bool { return l.offsets[i] >= from })
	end := idx + window
	if end > len(l.offsets) {
		end = len(l.offsets)
	}
	out := make([]Entry, 0, end-idx)
	for _, off := range l.offsets[idx:end] {
		out = append(out, Entry{Offset: off, Msg: l.msgs[off]})
	}
	return out
}

// Entries returns every entry of key in offset order.
func (s *Logs) Entries(key string) []Entry {
	l, ok := s.logs[key]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(l.offsets))
	for _, off := range l.offsets {
		out = append(out, Entry{Offset: off, Msg: l.msgs[off]})
	}
	return out
}

// Commit raises the committed high-water mark of key to offset. Lower
// offsets are ignored; entries are never removed.
func (s *Logs) Commit(key string, offset int64) {
	l := s.log(key)
	if offset > l.committed {
		l.committed = offset
	}
}

// Committed returns the committed high-water mark of key and whether one
// has been recorded.
func (s *Logs) Committed(key string) (int64, bool) {
	l, ok := s.logs[key]
	if !ok || l.committed == 0 {
		return 0, false
	}
	return l.committed, true
}

// Keys returns every key with entries or commits, sorted.
func (s *Logs) Keys() []string {
	keys := make([]string, 0, len(s.logs))
	for k := range s.logs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of entries across keys.
func (s *Logs) Len() int {
	n := 0
	for _, l := range s.logs {
		n += len(l.offsets)
	}
	return n
}

// Empty reports whether there are no entries and no commits.
func (s *Logs) Empty() bool {
	for _, l := range s.logs {
		if len(l.offsets) > 0 || l.committed > 0 {
			return false
		}
	}
	return true
}

// Copy returns an independent copy.
func (s *Logs) Copy() *Logs {
	c := NewLogs()
	for k, l := range s.logs {
		cl := newKeyLog()
		for off, msg := range l.msgs {
			cl.msgs[off] = msg
		}
		cl.offsets = append([]int64(nil), l.offsets...)
		cl.committed = l.committed
		c.logs[k] = cl
	}
	return c
}
