package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func (s *store) aggregatePath(typ string) string {
	return filepath.Join(s.root, dirAggregates, typ+".json")
}

func (s *store) readAggregateLocked(typ string) (core.Aggregate, error) {
	var agg core.Aggregate
	err := readJSON(s.aggregatePath(typ), &agg)
	if os.IsNotExist(err) {
		return core.Aggregate{Type: typ}, nil
	}
	if err != nil {
		return core.Aggregate{}, err
	}
	return agg, nil
}

func (s *store) writeAggregateLocked(agg core.Aggregate) error {
	sort.Slice(agg.Entries, func(i, j int) bool { return agg.Entries[i].Timestamp.Before(agg.Entries[j].Timestamp) })
	return writeJSONAtomic(s.aggregatePath(agg.Type), agg)
}

// StoreAggregate implements spec.md §4.7.4: appends a new timestamped
// entry.
func (s *store) StoreAggregate(typ string, data map[string]any, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.readAggregateLocked(typ)
	if err != nil {
		return fmt.Errorf("memory: read aggregate %s: %w", typ, err)
	}
	agg.Entries = append(agg.Entries, core.AggregateEntry{Timestamp: ts, Data: data})
	return s.writeAggregateLocked(agg)
}

// UpdateAggregate implements spec.md §4.7.4's replace/merge/accumulate
// strategies.
func (s *store) UpdateAggregate(typ string, data map[string]any, strategy core.MergeStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.readAggregateLocked(typ)
	if err != nil {
		return fmt.Errorf("memory: read aggregate %s: %w", typ, err)
	}

	switch strategy {
	case core.StrategyReplace, "":
		agg.Entries = append(agg.Entries, core.AggregateEntry{Timestamp: now(), Data: data})
	case core.StrategyMerge:
		if len(agg.Entries) == 0 {
			agg.Entries = append(agg.Entries, core.AggregateEntry{Timestamp: now(), Data: data})
		} else {
			latest := &agg.Entries[len(agg.Entries)-1]
			latest.Data = deepMerge(latest.Data, data)
			latest.Timestamp = now()
		}
	case core.StrategyAccumulate:
		if len(agg.Entries) == 0 {
			agg.Entries = append(agg.Entries, core.AggregateEntry{Timestamp: now(), Data: data})
		} else {
			latest := &agg.Entries[len(agg.Entries)-1]
			latest.Data = accumulate(latest.Data, data)
			latest.Timestamp = now()
		}
	default:
		return fmt.Errorf("memory: unknown merge strategy %q", strategy)
	}
	return s.writeAggregateLocked(agg)
}

// deepMerge recursively merges src into dst (dict fields merged
// recursively, scalars overwritten), per spec.md §4.7.4.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			existingMap, eok := existing.(map[string]any)
			incomingMap, iok := v.(map[string]any)
			if eok && iok {
				out[k] = deepMerge(existingMap, incomingMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// accumulate adds numeric fields of src into dst's corresponding fields;
// non-numeric fields overwrite, per spec.md §4.7.4.
func accumulate(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		existing, hasExisting := out[k]
		incomingNum, incomingIsNum := asNumber(v)
		existingNum, existingIsNum := asNumber(existing)
		if hasExisting && incomingIsNum && existingIsNum {
			out[k] = existingNum + incomingNum
			continue
		}
		out[k] = v
	}
	return out
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// LatestAggregate returns the newest entry's data.
func (s *store) LatestAggregate(typ string) (map[string]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.readAggregateLocked(typ)
	if err != nil {
		return nil, false, fmt.Errorf("memory: read aggregate %s: %w", typ, err)
	}
	if len(agg.Entries) == 0 {
		return nil, false, nil
	}
	return agg.Entries[len(agg.Entries)-1].Data, true, nil
}

// AggregateTimeRange returns data in order for entries within [start, end].
func (s *store) AggregateTimeRange(typ string, start, end time.Time) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.readAggregateLocked(typ)
	if err != nil {
		return nil, fmt.Errorf("memory: read aggregate %s: %w", typ, err)
	}
	var out []map[string]any
	for _, e := range agg.Entries {
		if (e.Timestamp.Equal(start) || e.Timestamp.After(start)) && (e.Timestamp.Equal(end) || e.Timestamp.Before(end)) {
			out = append(out, e.Data)
		}
	}
	return out, nil
}

// CleanupAggregateEntries removes entries older than retention_days.
func (s *store) CleanupAggregateEntries(typ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.readAggregateLocked(typ)
	if err != nil {
		return 0, fmt.Errorf("memory: read aggregate %s: %w", typ, err)
	}
	cutoff := now().AddDate(0, 0, -s.cfg.RetentionDays)
	var kept []core.AggregateEntry
	removed := 0
	for _, e := range agg.Entries {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	agg.Entries = kept
	if err := s.writeAggregateLocked(agg); err != nil {
		return 0, err
	}
	return removed, nil
}

// ComputeAggregateStatistics scans the active (or most recent) iteration's
// agent_outputs for the given agent type, collecting numeric values of
// results[metric], per spec.md §4.7.4.
func (s *store) ComputeAggregateStatistics(agent core.AgentType, metric string) (core.AggregateStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.activeIteration
	if n == 0 {
		latest, err := s.mostRecentIterationNumberLocked()
		if err != nil {
			return core.AggregateStatistics{}, err
		}
		n = latest
	}
	if n == 0 {
		return core.AggregateStatistics{}, nil
	}

	files, err := os.ReadDir(s.agentOutputsDir(n))
	if err != nil {
		if os.IsNotExist(err) {
			return core.AggregateStatistics{}, nil
		}
		return core.AggregateStatistics{}, fmt.Errorf("memory: read agent outputs: %w", err)
	}

	var values []float64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if agentTypeFromFilename(f.Name()) != string(agent) {
			continue
		}
		var o core.AgentOutput
		if err := readJSON(filepath.Join(s.agentOutputsDir(n), f.Name()), &o); err != nil {
			continue
		}
		if v, ok := o.Results[metric]; ok {
			if num, ok := asNumber(v); ok {
				values = append(values, num)
			}
		}
	}
	if len(values) == 0 {
		return core.AggregateStatistics{}, nil
	}
	stats := core.AggregateStatistics{Count: len(values), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Average = sum / float64(len(values))
	return stats, nil
}

func (s *store) mostRecentIterationNumberLocked() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dirIterations))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
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
	return max, nil
}
