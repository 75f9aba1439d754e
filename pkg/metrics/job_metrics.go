package metrics

import (
	"sort"
	"sync"
	"time"
)

// maxSamples bounds the durations kept per mode.
const maxSamples = 100

// JobMetrics tracks job durations and outcomes per translation mode.
type JobMetrics struct {
	mu             sync.RWMutex
	durations      map[string][]time.Duration
	successCount   map[string]int64
	errorCount     map[string]int64
	failedSegments int64
	artifacts      int64
	lastUpdated    time.Time
}

// ModeStats summarizes the jobs run in one mode.
type ModeStats struct {
	Mode         string        `json:"mode"`
	SuccessCount int64         `json:"successCount"`
	ErrorCount   int64         `json:"errorCount"`
	TotalCount   int64         `json:"totalCount"`
	AverageTime  time.Duration `json:"averageTime"`
	MinTime      time.Duration `json:"minTime"`
	MaxTime      time.Duration `json:"maxTime"`
	MedianTime   time.Duration `json:"medianTime"`
	P95Time      time.Duration `json:"p95Time"`
	SuccessRate  float64       `json:"successRate"`
}

// OverallStats summarizes every job since start.
type OverallStats struct {
	TotalJobs      int64                `json:"totalJobs"`
	TotalErrors    int64                `json:"totalErrors"`
	FailedSegments int64                `json:"failedSegments"`
	Artifacts      int64                `json:"artifacts"`
	Modes          map[string]ModeStats `json:"modes"`
	LastUpdated    time.Time            `json:"lastUpdated"`
}

// NewJobMetrics creates an empty collector.
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		durations:    make(map[string][]time.Duration),
		successCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		lastUpdated:  time.Now(),
	}
}

// RecordJob records one finished job.
func (m *JobMetrics) RecordJob(mode string, duration time.Duration, success bool, artifacts, failedSegments int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.durations[mode] = append(m.durations[mode], duration)
	if len(m.durations[mode]) > maxSamples {
		m.durations[mode] = m.durations[mode][1:]
	}

	if success {
		m.successCount[mode]++
	} else {
		m.errorCount[mode]++
	}
	m.artifacts += int64(artifacts)
	m.failedSegments += int64(failedSegments)
	m.lastUpdated = time.Now()
}

// Mode returns the statistics for one mode.
func (m *JobMetrics) Mode(mode string) ModeStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modeLocked(mode)
}

func (m *JobMetrics) modeLocked(mode string) ModeStats {
	s := ModeStats{
		Mode:         mode,
		SuccessCount: m.successCount[mode],
		ErrorCount:   m.errorCount[mode],
	}
	s.TotalCount = s.SuccessCount + s.ErrorCount
	if s.TotalCount > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalCount) * 100
	}

	times := m.durations[mode]
	if len(times) == 0 {
		return s
	}

	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, t := range sorted {
		total += t
	}
	s.AverageTime = total / time.Duration(len(sorted))
	s.MinTime = sorted[0]
	s.MaxTime = sorted[len(sorted)-1]
	if len(sorted)%2 == 0 {
		s.MedianTime = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	} else {
		s.MedianTime = sorted[len(sorted)/2]
	}
	s.P95Time = percentile(sorted, 0.95)
	return s
}

// Overall returns statistics across all modes.
func (m *JobMetrics) Overall() OverallStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	modes := make(map[string]ModeStats)
	for mode := range m.durations {
		modes[mode] = m.modeLocked(mode)
	}

	var total, errs int64
	for _, s := range modes {
		total += s.TotalCount
		errs += s.ErrorCount
	}

	return OverallStats{
		TotalJobs:      total,
		TotalErrors:    errs,
		FailedSegments: m.failedSegments,
		Artifacts:      m.artifacts,
		Modes:          modes,
		LastUpdated:    m.lastUpdated,
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
