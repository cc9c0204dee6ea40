package tans

import (
	"sync"

	"github.com/cespare/xxhash"
)

// Decoder decodes a tANS-coded stream using a fixed table and a pool of
// goroutines sized by config.threads, the same shape zstd.Decoder uses to
// size its block-decoder pool off runtime.GOMAXPROCS(0).
// Unlike zstd.Decoder this one is not a streaming io.Reader: a tANS stream
// has no internal frame boundaries to read incrementally, so the only
// entry point is the single-shot DecodeAll, matching both
// MulticoreDecoder::decode's shape and zstd.Decoder.DecodeAll's contract.
type Decoder struct {
	table    *DecoderTable
	cfg      *config
	checksum uint64
}

// NewDecoder validates table and opts and returns a Decoder ready for
// DecodeAll. table is not copied; it must not be mutated while a decode is
// in flight.
func NewDecoder(table *DecoderTable, opts ...Option) (*Decoder, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Decoder{table: table, cfg: cfg}, nil
}

// Checksum returns the xxhash64 of the most recent successful DecodeAll's
// output. It is only meaningful if the Decoder was built WithChecksum(true);
// otherwise it returns 0.
func (d *Decoder) Checksum() uint64 { return d.checksum }

// DecodeAll decodes in against the Decoder's table, producing exactly
// uncompressedSize bytes. initialState must already lie in
// [table.NumStates, 2*table.NumStates); it is the encoder's own terminal
// state, conventionally carried alongside the compressed stream rather than
// inside it, since a tANS decode always runs in the reverse direction of
// the encode that produced it. Thread 0 begins reading in.Units[0] at bit
// offset unitBits-in.FirstBit, per in.FirstBit's contract.
func (d *Decoder) DecodeAll(in *Input, initialState uint32, uncompressedSize int) ([]byte, error) {
	if !d.table.inRange(initialState) {
		return nil, &ConfigError{Field: "InitialState", Value: int(initialState), Msg: "must be in [NumStates, 2*NumStates)"}
	}
	if err := in.validate(d.cfg.subsequenceSize); err != nil {
		return nil, err
	}
	if uncompressedSize < 0 {
		return nil, &ConfigError{Field: "UncompressedSize", Value: uncompressedSize, Msg: "must not be negative"}
	}

	intervals, numSubsequences, err := planIntervals(in.NumUnits, d.cfg.subsequenceSize, d.cfg.threads)
	if err != nil {
		return nil, err
	}
	threads := len(intervals)
	subsPerThread := numSubsequences / threads
	d.cfg.logf("tans: planned %d intervals over %d subsequences (%d per thread)", threads, numSubsequences, subsPerThread)

	sync := make([]syncPoint, numSubsequences)

	// Phase 1: every thread speculatively decodes its own span. Thread 0
	// alone starts from the real entry state, reading unit 0 at the bit
	// offset the encoder's last partially filled unit implies; every
	// other thread guesses the lowest valid state as its entry, since it
	// cannot know the true exit state of the subsequence before it
	// without decoding it first.
	entries := make([]syncPoint, threads)
	entries[0] = syncPoint{state: initialState, bit: unitBits - in.FirstBit, unit: 0}
	for t := 1; t < threads; t++ {
		entries[t] = syncPoint{state: d.table.NumStates, bit: 0, unit: intervals[t].begin}
	}

	if err := d.runRound(in, intervals, entries, modeSpeculate, sync, nil); err != nil {
		return nil, err
	}

	// Phase 2: repeatedly re-decode every thread but the first from its
	// upstream neighbor's currently committed boundary, until no thread's
	// own boundary changes or the iteration cap (threads-1 rounds, the
	// worst-case ripple distance across the whole interval set) is spent.
	// Convergence is detected inside decodeChunk itself (modeResync), not
	// by the orchestrator comparing snapshots across rounds: a thread
	// reports itself synced the moment its freshly computed boundary
	// matches what is already recorded there.
	synced := make([]bool, threads)
	synced[0] = true

	maxRounds := threads - 1
	for round := 0; round < maxRounds; round++ {
		if allSynced(synced) {
			break
		}

		roundEntries := make([]syncPoint, threads)
		for t := 1; t < threads; t++ {
			roundEntries[t] = sync[t*subsPerThread-1]
		}
		results, err := d.resyncRound(in, intervals, roundEntries, sync, synced)
		if err != nil {
			return nil, err
		}
		for t := 1; t < threads; t++ {
			if results[t] {
				synced[t] = true
			}
		}
		d.cfg.logf("tans: phase 2 round %d complete, synced=%v", round, synced)

		if round == maxRounds-1 && !allSynced(synced) {
			for t := 1; t < threads; t++ {
				if !synced[t] {
					return nil, &CorruptionError{Subsequence: t * subsPerThread, Msg: "phase 2 did not converge within the iteration cap"}
				}
			}
		}
	}

	outPositions := prefixSum(sync, subsPerThread, threads)

	// Terminal boundary verification: the last thread's span, plus every
	// symbol counted before it, must land exactly on the declared output
	// size. MULTIANS itself only flips the last interval's synced flag
	// unconditionally and trusts the caller; this module checks the
	// arithmetic instead of trusting it blindly.
	if outPositions[threads-1]+finalCount(sync, subsPerThread, threads) != uncompressedSize {
		return nil, &CorruptionError{Subsequence: (threads - 1) * subsPerThread, Msg: "decoded symbol count does not match the declared uncompressed size"}
	}

	out := NewOutputBuffer(uncompressedSize)
	writeEntries := make([]syncPoint, threads)
	writeEntries[0] = entries[0]
	for t := 1; t < threads; t++ {
		writeEntries[t] = sync[t*subsPerThread-1]
	}
	outLimits := make([]int, threads)
	for t := 0; t < threads-1; t++ {
		outLimits[t] = outPositions[t+1]
	}
	outLimits[threads-1] = uncompressedSize

	// Only the last thread's interval can run past in.NumUnits (the
	// planner folds the leftover subsequences there); trimmed to
	// NumUnits, it stops exactly when its real symbols are exhausted
	// instead of decoding on into the trailing pad and tripping
	// outLimits[threads-1] as if that were a genuine overflow.
	writeIntervals := intervals
	if last := intervals[threads-1]; last.end > in.NumUnits {
		writeIntervals = append([]interval(nil), intervals...)
		writeIntervals[threads-1] = interval{begin: last.begin, end: in.NumUnits, sub: last.sub}
	}

	if err := d.writeRound(in, writeIntervals, writeEntries, out, outPositions, outLimits); err != nil {
		return nil, err
	}

	if d.cfg.checksum {
		d.checksum = xxhash.Sum64(out.Bytes())
	}
	return out.Bytes(), nil
}

func allSynced(synced []bool) bool {
	for _, s := range synced {
		if !s {
			return false
		}
	}
	return true
}

// runRound fans decodeChunk out over every thread's interval (except those
// with skip[t] set) in the given mode, with no output buffer. DecodeAll uses
// it for modeSpeculate, where every thread scans its entire span; writeRound
// is the modeWrite counterpart, since that mode additionally needs an output
// buffer and a per-thread output offset and limit.
func (d *Decoder) runRound(in *Input, intervals []interval, entries []syncPoint, mode kernelMode, syncPts []syncPoint, skip []bool) error {
	var wg sync.WaitGroup
	errs := make([]error, len(intervals))
	for t := 0; t < len(intervals); t++ {
		if skip != nil && skip[t] {
			continue
		}
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := decodeChunk(d.table, in, intervals[t], d.cfg.subsequenceSize, entries[t], mode, syncPts, nil, 0, 0)
			errs[t] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// resyncRound fans decodeChunk out in modeResync over every thread that has
// not yet converged (thread 0 never participates, since it never needs
// resync), returning each thread's reported convergence flag.
func (d *Decoder) resyncRound(in *Input, intervals []interval, entries []syncPoint, syncPts []syncPoint, synced []bool) ([]bool, error) {
	var wg sync.WaitGroup
	errs := make([]error, len(intervals))
	results := make([]bool, len(intervals))
	for t := 1; t < len(intervals); t++ {
		if synced[t] {
			continue
		}
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := decodeChunk(d.table, in, intervals[t], d.cfg.subsequenceSize, entries[t], modeResync, syncPts, nil, 0, 0)
			results[t] = ok
			errs[t] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// writeRound is phase 3's fan-out: every thread decodes in modeWrite against
// the shared output buffer at its own disjoint, prefix-sum-assigned offset,
// bounded by outLimits[t] so a miscomputed symbol count fails fast instead
// of spilling into a neighboring thread's range.
func (d *Decoder) writeRound(in *Input, intervals []interval, entries []syncPoint, out *OutputBuffer, outPositions, outLimits []int) error {
	var wg sync.WaitGroup
	errs := make([]error, len(intervals))
	for t := 0; t < len(intervals); t++ {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := decodeChunk(d.table, in, intervals[t], d.cfg.subsequenceSize, entries[t], modeWrite, nil, out, outPositions[t], outLimits[t])
			errs[t] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func finalCount(sync []syncPoint, subsPerThread, threads int) int {
	sum := 0
	for s := (threads - 1) * subsPerThread; s < len(sync); s++ {
		sum += sync[s].numSymbols
	}
	return sum
}
