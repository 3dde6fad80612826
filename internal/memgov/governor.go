// Package memgov implements the Memory Governor: it tracks how much
// memory the indexing process is using and searches for a batch size the
// configured memory budget can afford, per SPEC_FULL.md §4.2.
//
// No third-party process/host memory-stats library appears anywhere in
// the example corpus this project was grounded on, so usage is read from
// runtime.MemStats and the host budget from /proc/meminfo — see
// DESIGN.md for the full justification.
package memgov

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// UsageReader abstracts "how many bytes is this process using right now"
// so a real implementation can be substituted without touching callers.
type UsageReader interface {
	CurrentUsage() uint64
	AvailableBudget() uint64
}

// RuntimeUsageReader is the standard-library-backed UsageReader.
type RuntimeUsageReader struct{}

// CurrentUsage returns bytes obtained from the OS by the Go runtime, the
// closest stdlib-only proxy for resident set size.
func (RuntimeUsageReader) CurrentUsage() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys
}

// AvailableBudget returns a best-effort estimate of memory this process
// may use: MemAvailable from /proc/meminfo on Linux, or a fixed 1 GiB
// fallback when that file cannot be read (non-Linux, sandboxed environments).
func (RuntimeUsageReader) AvailableBudget() uint64 {
	const fallback = 1 << 30 // 1 GiB

	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return fallback
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb * 1024
	}
	return fallback
}

// Governor decides how many documents may be absorbed into memory between
// SPIMI spills, per a fractional budget of available host memory.
type Governor struct {
	reader   UsageReader
	fraction float64
}

// DefaultFraction is used when configuration leaves MemoryFraction at zero.
const DefaultFraction = 0.5

// New builds a Governor against the given fraction of available memory
// (0 selects DefaultFraction) using the standard runtime-backed reader.
func New(fraction float64) *Governor {
	if fraction <= 0 {
		fraction = DefaultFraction
	}
	return &Governor{reader: RuntimeUsageReader{}, fraction: fraction}
}

// NewWithReader builds a Governor against a custom UsageReader, primarily
// for tests that need deterministic usage figures.
func NewWithReader(reader UsageReader, fraction float64) *Governor {
	if fraction <= 0 {
		fraction = DefaultFraction
	}
	return &Governor{reader: reader, fraction: fraction}
}

// CurrentUsage returns the process's current memory usage in bytes.
func (g *Governor) CurrentUsage() uint64 {
	return g.reader.CurrentUsage()
}

// budget is the ceiling on total process usage (current usage plus any
// extra bytes) that this governor allows.
func (g *Governor) budget() uint64 {
	return uint64(float64(g.reader.AvailableBudget()) * g.fraction)
}

// CanAfford reports whether extraBytes beyond current usage still fits
// within the governor's budget.
func (g *Governor) CanAfford(extraBytes uint64) bool {
	return g.reader.CurrentUsage()+extraBytes <= g.budget()
}

// ProbeBatchSize is the initial probe batch B₀ from SPEC_FULL.md §4.2.
const ProbeBatchSize = 10000

// ChooseBatchSize implements the probe-then-inflate search: given the
// memory delta observed after absorbing a probe batch, find the largest
// inflation factor f (stepping down from 1.0 by 0.05, stopping once
// f < 0.05) such that CanAfford(delta * (1+f)) holds, and return
// ProbeBatchSize * (1+f) rounded down. If no such f fits,
// ProbeBatchSize itself is returned as the floor.
func (g *Governor) ChooseBatchSize(delta uint64) int {
	for step := 20; step >= 1; step-- {
		f := float64(step) / 20
		extra := uint64(float64(delta) * (1 + f))
		if g.CanAfford(extra) {
			return int(float64(ProbeBatchSize) * (1 + f))
		}
	}
	return ProbeBatchSize
}
