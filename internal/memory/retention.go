package memory

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// archiveMetadataEntry is one line of archive/archive_metadata.json, per
// spec.md §4.7.7.
type archiveMetadataEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	ArchivedCount int       `json:"archived_count"`
}

type lastArchiveRecord struct {
	Timestamp time.Time `json:"timestamp"`
}

// ArchiveOldData gzip-tarballs the iteration directory into
// archive/<name>_<UTC>.tar.gz and appends to archive_metadata.json, per
// spec.md §4.7.7. archive/tar + compress/gzip is a standard-library choice
// justified in DESIGN.md: no archiving library appears anywhere in the
// retrieval pack.
func (s *store) ArchiveOldData(iterationNumber int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveOldDataLocked(iterationNumber)
}

func (s *store) archiveOldDataLocked(iterationNumber int) (string, error) {
	srcDir := s.iterationDir(iterationNumber)
	name := fmt.Sprintf("iteration_%03d_%s.tar.gz", iterationNumber, now().Format("20060102T150405"))
	destPath := filepath.Join(s.root, dirArchive, name)

	if err := tarGzDir(srcDir, destPath); err != nil {
		return "", fmt.Errorf("memory: archive iteration %d: %w", iterationNumber, err)
	}

	metaPath := filepath.Join(s.root, dirArchive, "archive_metadata.json")
	var entries []archiveMetadataEntry
	_ = readJSON(metaPath, &entries)
	entries = append(entries, archiveMetadataEntry{Timestamp: now(), ArchivedCount: 1})
	if err := writeJSONAtomic(metaPath, entries); err != nil {
		return "", fmt.Errorf("memory: update archive metadata: %w", err)
	}
	return destPath, nil
}

func tarGzDir(srcDir, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(filepath.Dir(srcDir), path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

// CleanupOldIterations archives then removes every non-active iteration
// older than retention_days, and also runs CleanupOldCheckpoints, per
// spec.md §4.7.7.
func (s *store) CleanupOldIterations() (int, error) {
	s.mu.Lock()
	iterDir := filepath.Join(s.root, dirIterations)
	entries, err := os.ReadDir(iterDir)
	if err != nil {
		s.mu.Unlock()
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memory: list iterations: %w", err)
	}
	cutoff := now().AddDate(0, 0, -s.cfg.RetentionDays)

	cleaned := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err != nil {
			continue
		}
		if n == s.activeIteration {
			continue
		}
		meta, err := s.readIterationMetadata(n)
		if err != nil || meta.StartedAt.After(cutoff) {
			continue
		}
		if _, err := s.archiveOldDataLocked(n); err != nil {
			s.mu.Unlock()
			return cleaned, err
		}
		if err := os.RemoveAll(s.iterationDir(n)); err != nil {
			s.mu.Unlock()
			return cleaned, fmt.Errorf("memory: remove iteration %d: %w", n, err)
		}
		cleaned++
	}
	s.mu.Unlock()

	if _, err := s.CleanupOldCheckpoints(); err != nil {
		return cleaned, err
	}
	return cleaned, nil
}

// CleanupOldCheckpoints removes checkpoints older than retention_days.
func (s *store) CleanupOldCheckpoints() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, dirCheckpoints)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memory: list checkpoints: %w", err)
	}
	cutoff := now().AddDate(0, 0, -s.cfg.RetentionDays)
	cleaned := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var cf checkpointFile
		if err := readJSON(filepath.Join(dir, e.Name(), "checkpoint.json"), &cf); err != nil {
			continue
		}
		if cf.CreatedAt.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return cleaned, fmt.Errorf("memory: remove checkpoint %s: %w", e.Name(), err)
		}
		cleaned++
	}
	return cleaned, nil
}

// CheckGarbageCollectionNeeded reports whether total size exceeds 80% of
// max_storage_gb, per spec.md §4.7.7.
func (s *store) CheckGarbageCollectionNeeded() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxStorageGB <= 0 {
		return false, nil
	}
	used, err := s.diskUsageBytes()
	if err != nil {
		return false, fmt.Errorf("memory: disk usage: %w", err)
	}
	threshold := int64(s.cfg.MaxStorageGB * maxStorageFraction * (1 << 30))
	return used > threshold, nil
}

// RunGarbageCollection runs iteration cleanup then aggregate cleanup,
// returning freed bytes, per spec.md §4.7.7.
func (s *store) RunGarbageCollection() (int64, error) {
	start := now()
	before, err := s.diskUsageBytesLocked()
	if err != nil {
		return 0, err
	}

	if _, err := s.CleanupOldIterations(); err != nil {
		return 0, err
	}

	aggDir := filepath.Join(s.root, dirAggregates)
	entries, err := os.ReadDir(aggDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			typ := strings.TrimSuffix(e.Name(), ".json")
			if _, err := s.CleanupAggregateEntries(typ); err != nil {
				return 0, err
			}
		}
	}

	after, err := s.diskUsageBytesLocked()
	if err != nil {
		return 0, err
	}
	freed := before - after
	if freed < 0 {
		freed = 0
	}

	s.mu.Lock()
	s.perfHistory = append(s.perfHistory, perfRecord{Timestamp: start, Duration: now().Sub(start), BytesFreed: freed})
	s.mu.Unlock()

	return freed, nil
}

func (s *store) diskUsageBytesLocked() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diskUsageBytes()
}

// RotateArchives archives old data and stamps configuration/last_archive.json
// if at least 24h have elapsed since the last rotation, per spec.md §4.7.7.
func (s *store) RotateArchives() error {
	s.mu.Lock()
	path := filepath.Join(s.root, dirConfiguration, "last_archive.json")
	var last lastArchiveRecord
	_ = readJSON(path, &last)
	due := last.Timestamp.IsZero() || now().Sub(last.Timestamp) >= 24*time.Hour
	activeIteration := s.activeIteration
	s.mu.Unlock()

	if !due {
		return nil
	}

	iterations, err := s.ListIterations()
	if err != nil {
		return err
	}
	for _, it := range iterations {
		if it.Number == activeIteration || it.Status != core.IterationCompleted {
			continue
		}
		if _, err := s.ArchiveOldData(it.Number); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(path, lastArchiveRecord{Timestamp: now()})
}

// CollectGarbage sweeps orphan directories and temp files under
// iterations/, checkpoints/, aggregates/, kv_store/, per spec.md §4.7.7.
// Errors are collected, not aborting the sweep.
func (s *store) CollectGarbage() (core.GCResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := core.GCResult{}

	s.sweepOrphanIterationDirs(&result)
	s.sweepOrphanTempFiles(filepath.Join(s.root, dirCheckpoints), &result)
	s.sweepOrphanTempFiles(filepath.Join(s.root, dirAggregates), &result)
	s.sweepOrphanTempFiles(filepath.Join(s.root, dirKV), &result)

	return result, nil
}

func (s *store) sweepOrphanIterationDirs(result *core.GCResult) {
	dir := filepath.Join(s.root, dirIterations)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, err.Error())
		}
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == "current" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err != nil {
			result.OrphanedDirectories++
			freed := s.removeAndCount(filepath.Join(dir, e.Name()), result)
			result.BytesFreed += freed
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), metadataFile)); os.IsNotExist(err) {
			result.OrphanedDirectories++
			freed := s.removeAndCount(filepath.Join(dir, e.Name()), result)
			result.BytesFreed += freed
		}
	}
}

func (s *store) sweepOrphanTempFiles(dir string, result *core.GCResult) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, err.Error())
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") || name == ".DS_Store" {
			info, _ := e.Info()
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.OrphanedFiles++
			if info != nil {
				result.BytesFreed += info.Size()
			}
		}
	}
}

func (s *store) removeAndCount(path string, result *core.GCResult) int64 {
	var size int64
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err := os.RemoveAll(path); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return 0
	}
	return size
}

// SetCleanupBatchSize implements spec.md §4.7.7's incremental cleanup
// knob.
func (s *store) SetCleanupBatchSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.cleanupBatchSize = n
	}
}

// CleanupBatch processes at most cleanupBatchSize eligible iterations,
// per spec.md §4.7.7.
func (s *store) CleanupBatch() (int, error) {
	s.mu.Lock()
	batchSize := s.cleanupBatchSize
	iterDir := filepath.Join(s.root, dirIterations)
	entries, err := os.ReadDir(iterDir)
	if err != nil {
		s.mu.Unlock()
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memory: list iterations: %w", err)
	}
	cutoff := now().AddDate(0, 0, -s.cfg.RetentionDays)
	activeIteration := s.activeIteration
	s.mu.Unlock()

	processed := 0
	for _, e := range entries {
		if processed >= batchSize {
			break
		}
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iteration_%d", &n); err != nil || n == activeIteration {
			continue
		}
		meta, err := s.IterationInfo(n)
		if err != nil || meta.StartedAt.After(cutoff) {
			continue
		}
		s.mu.Lock()
		if _, err := s.archiveOldDataLocked(n); err != nil {
			s.mu.Unlock()
			return processed, err
		}
		if err := os.RemoveAll(s.iterationDir(n)); err != nil {
			s.mu.Unlock()
			return processed, fmt.Errorf("memory: remove iteration %d: %w", n, err)
		}
		s.mu.Unlock()
		processed++
	}
	return processed, nil
}
