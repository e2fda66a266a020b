package memory

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// RetrieveStateForAgent implements spec.md §4.7.6's read-your-writes
// guarantee: scans newest-first for the latest state whose writer_id
// matches, falling back to the global latest.
func (s *store) RetrieveStateForAgent(agentID string) (core.StateUpdate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fallback *stateIndexEntry
	for i := len(s.index) - 1; i >= 0; i-- {
		e := s.index[i]
		if fallback == nil {
			fallback = &s.index[i]
		}
		if e.writerID == agentID {
			u, err := s.readStateUpdate(e.path)
			return u, true, err
		}
	}
	if fallback == nil {
		return core.StateUpdate{}, false, nil
	}
	u, err := s.readStateUpdate(fallback.path)
	return u, true, err
}

// RetrieveStateAsOf implements spec.md §4.7.6's snapshot-as-of(t): the
// newest state with timestamp <= t.
func (s *store) RetrieveStateAsOf(t time.Time) (core.StateUpdate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.index) - 1; i >= 0; i-- {
		e := s.index[i]
		if !e.timestamp.After(t) {
			u, err := s.readStateUpdate(e.path)
			return u, true, err
		}
	}
	return core.StateUpdate{}, false, nil
}

// SessionHistory implements spec.md §4.7.6's causal session history:
// state-update projections in timestamp order where
// orchestration_state.session_id == sessionID.
func (s *store) SessionHistory(sessionID string) ([]core.StateUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.StateUpdate
	for _, e := range s.index {
		if e.sessionID != sessionID {
			continue
		}
		u, err := s.readStateUpdate(e.path)
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *store) readStateUpdate(path string) (core.StateUpdate, error) {
	var u core.StateUpdate
	if err := readJSON(path, &u); err != nil {
		return core.StateUpdate{}, fmt.Errorf("memory: read state update %s: %w", path, err)
	}
	return u, nil
}

// ReserveWriteWindow implements spec.md §4.7.6: persists a reservation to
// configuration/write_reservations.json, evicting expired entries. The
// reservation is advisory only — see DESIGN.md.
func (s *store) ReserveWriteWindow(agentID string, duration time.Duration) (core.WriteReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, dirConfiguration, "write_reservations.json")
	var all map[string]core.WriteReservation
	if err := readJSON(path, &all); err != nil {
		all = map[string]core.WriteReservation{}
	}

	t := now()
	for id, r := range all {
		if r.ExpiresAt.Before(t) {
			delete(all, id)
		}
	}

	reservation := core.WriteReservation{AgentID: agentID, StartedAt: t, ExpiresAt: t.Add(duration)}
	all[agentID] = reservation

	if err := writeJSONAtomic(path, all); err != nil {
		return core.WriteReservation{}, fmt.Errorf("memory: write reservations: %w", err)
	}
	return reservation, nil
}
