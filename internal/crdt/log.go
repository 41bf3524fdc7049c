package crdt

import "meshnode/internal/storage"

// LogPolicy replicates per-key logs: the delta for a peer is every entry it
// is not known to hold plus every commit mark above its known mark. Merging
// unions entries and keeps the highest commit mark.
type LogPolicy struct{}

func (LogPolicy) New() *storage.Logs                  { return storage.NewLogs() }
func (LogPolicy) Clone(l *storage.Logs) *storage.Logs { return l.Copy() }
func (LogPolicy) Empty(l *storage.Logs) bool          { return l.Empty() }

func (LogPolicy) Diff(local, known *storage.Logs) *storage.Logs {
	d := storage.NewLogs()
	for _, key := range local.Keys() {
		for _, e := range local.Entries(key) {
			if !known.Has(key, e.Offset) {
				d.Insert(key, e.Offset, e.Msg)
			}
		}
		mark, ok := local.Committed(key)
		if !ok {
			continue
		}
		if have, _ := known.Committed(key); mark > have {
			d.Commit(key, mark)
		}
	}
	return d
}

func (LogPolicy) Merge(dst, delta *storage.Logs) {
	for _, key := range delta.Keys() {
		for _, e := range delta.Entries(key) {
			dst.Insert(key, e.Offset, e.Msg)
		}
		if mark, ok := delta.Committed(key); ok {
			dst.Commit(key, mark)
		}
	}
}
