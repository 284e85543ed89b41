package optimistic

import "sync"

// journal orders how mutations settle against the cache.
//
// A rollback restores a snapshot taken when its mutation began, which also
// reverts whatever other mutations settled in the meantime. The journal
// keeps a replay for each settled mutation while any older one is still in
// flight, and a rollback runs the replays of everything that settled after
// its own start. Replays are idempotent: a confirmed mutation re-applies
// the server's answer, a rejected one invalidates the entries it touched.
type journal struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[uint64]struct{}
	settled  []settledMutation
}

type settledMutation struct {
	seq    uint64
	replay func()
}

func newJournal() *journal {
	return &journal{inflight: make(map[uint64]struct{})}
}

// begin registers a mutation as in flight. Call it before taking the
// mutation's snapshot.
func (j *journal) begin() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.inflight[j.seq] = struct{}{}
	return j.seq
}

// settle runs apply for the mutation that began at start. With rolledBack
// set, apply has restored a snapshot and every mutation that settled since
// start is replayed on top of it. replay is kept for rollbacks of mutations
// still in flight.
func (j *journal) settle(start uint64, rolledBack bool, apply, replay func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	apply()
	if rolledBack {
		for _, s := range j.settled {
			if s.seq > start {
				s.replay()
			}
		}
	}

	delete(j.inflight, start)
	j.seq++
	j.settled = append(j.settled, settledMutation{seq: j.seq, replay: replay})
	j.prune()
}

// record settles a change that had no snapshot of its own, such as an
// event pushed by the server.
func (j *journal) record(apply func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	apply()
	j.seq++
	j.settled = append(j.settled, settledMutation{seq: j.seq, replay: apply})
	j.prune()
}

// prune drops replays no in-flight mutation can need. Must hold j.mu.
func (j *journal) prune() {
	if len(j.inflight) == 0 {
		j.settled = nil
		return
	}
	oldest := j.seq
	for s := range j.inflight {
		oldest = min(oldest, s)
	}
	kept := j.settled[:0]
	for _, s := range j.settled {
		if s.seq > oldest {
			kept = append(kept, s)
		}
	}
	clear(j.settled[len(kept):])
	j.settled = kept
}

// pending reports how many replays are retained.
func (j *journal) pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.settled)
}
