package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// StartNewIteration implements spec.md §4.7.1: fails if any iteration is
// active, otherwise picks max(existing)+1 and creates the directory tree.
func (s *store) StartNewIteration() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeIteration != 0 {
		return 0, fmt.Errorf("memory: iteration %d is already active", s.activeIteration)
	}

	next, err := s.nextIterationNumberLocked()
	if err != nil {
		return 0, err
	}
	for _, d := range []string{s.iterationDir(next), s.agentOutputsDir(next), s.tournamentDir(next)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return 0, fmt.Errorf("memory: create iteration dir: %w", err)
		}
	}
	meta := core.Iteration{
		Number:      next,
		StartedAt:   now(),
		Status:      core.IterationActive,
		Checkpoints: []string{},
	}
	if err := s.writeIterationMetadata(next, meta); err != nil {
		return 0, err
	}
	s.activeIteration = next
	return next, nil
}

func (s *store) nextIterationNumberLocked() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dirIterations))
	if err != nil {
		return 0, fmt.Errorf("memory: list iterations: %w", err)
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// CompleteIteration implements spec.md §4.7.1.
func (s *store) CompleteIteration(number int, summary map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readIterationMetadata(number)
	if err != nil {
		return false, fmt.Errorf("memory: read iteration %d: %w", number, err)
	}
	if meta.Status != core.IterationActive {
		return false, nil
	}
	completedAt := now()
	duration := completedAt.Sub(meta.StartedAt).Seconds()
	meta.Status = core.IterationCompleted
	meta.CompletedAt = &completedAt
	meta.DurationSecs = &duration
	meta.Summary = summary
	if err := s.writeIterationMetadata(number, meta); err != nil {
		return false, err
	}
	if s.activeIteration == number {
		s.activeIteration = 0
	}
	return true, nil
}

func (s *store) ActiveIteration() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeIteration == 0 {
		return 0, false
	}
	return s.activeIteration, true
}

func (s *store) ListIterations() ([]core.Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, dirIterations))
	if err != nil {
		return nil, fmt.Errorf("memory: list iterations: %w", err)
	}
	var out []core.Iteration
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err != nil {
			continue
		}
		meta, err := s.readIterationMetadata(n)
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *store) IterationInfo(number int) (core.Iteration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIterationMetadata(number)
}

// IterationStats implements spec.md §4.7.1: counts state-update files,
// agent-output files grouped by agent type, meta-review presence, and
// summed byte sizes.
func (s *store) IterationStats(number int) (core.IterationStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := core.IterationStatistics{Number: number, OutputsByAgent: map[string]int{}}

	files, err := os.ReadDir(s.iterationDir(number))
	if err != nil {
		return stats, fmt.Errorf("memory: read iteration %d: %w", number, err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
		switch {
		case f.Name() == metadataFile:
			// not counted as a state update
		case f.Name() == "meta_review.json":
			stats.HasMetaReview = true
		default:
			stats.StateUpdateCount++
		}
	}

	outputs, err := os.ReadDir(s.agentOutputsDir(number))
	if err == nil {
		for _, f := range outputs {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err == nil {
				stats.TotalBytes += info.Size()
			}
			agent := agentTypeFromFilename(f.Name())
			stats.OutputsByAgent[agent]++
		}
	}
	return stats, nil
}

// agentTypeFromFilename extracts "<agent>" from "<agent>_<task>_<UTC>.json".
func agentTypeFromFilename(name string) string {
	base := name[:len(name)-len(filepath.Ext(name))]
	for i := 0; i < len(base); i++ {
		if base[i] == '_' {
			return base[:i]
		}
	}
	return base
}

func now() time.Time {
	return time.Now().UTC()
}
