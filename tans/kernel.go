package tans

// kernelMode selects what a chunk decode pass does with each symbol it
// decodes, mirroring the (overflow, write) flag pair decode_phase1 is driven
// by in MULTIANS, collapsed into one enum per spec's explicit permission to
// do either:
//   - modeSpeculate: thread 0 decodes from the stream's real start state;
//     every other thread guesses an arbitrary entry state. Every subsequence
//     boundary crossed is written into sync unconditionally; there is
//     nothing trustworthy to compare against yet.
//   - modeResync: the thread bootstraps from its upstream neighbor's
//     currently committed boundary and rescans forward. At each boundary it
//     compares the freshly derived (state, bit, unit) triple against what
//     is already recorded in sync at that index. A match means everything
//     downstream of this point was already computed, on some earlier
//     round, using a decode trace that is bit-identical to the one this
//     call would continue to produce — so the thread is done: it records
//     the matched boundary's symbol count and returns immediately without
//     touching the rest of its interval. A mismatch means the recorded
//     boundary was still wrong; it is overwritten and the scan continues
//     into the next subsequence.
//   - modeWrite: every thread already converged on its entry state in
//     modeResync (or holds the real start state, for thread 0); this pass
//     writes decoded symbols into the output buffer at the prefix-sum
//     assigned offset, never advancing past outLimit (the next thread's
//     offset, or the output buffer's end for the last thread).
type kernelMode int

const (
	modeSpeculate kernelMode = iota
	modeResync
	modeWrite
)

// decodeChunk decodes every subsequence iv owns (plus, for the last thread,
// the remainder subsequences the planner folded onto it), starting from
// entry and advancing state one symbol at a time via table lookups and
// MULTIANS-style renormalization: consume the table entry's NumBits, then
// keep consuming one more bit at a time while the resulting state is still
// below NumStates.
//
// sync is the full, shared per-subsequence boundary array; decodeChunk
// indexes into it at iv.begin/subsequenceSize and onward, writing directly
// (modeSpeculate, modeResync) rather than returning a separate copy. The
// returned bool is only meaningful for modeResync: true means this thread's
// boundary has converged and phase 2 should mark it synced.
//
// out/outStart/outLimit are only used in modeWrite: a write that would reach
// outLimit is reported as ErrBufferUnderflow, since it means the committed
// sync points disagree with the caller-declared uncompressed size or would
// otherwise spill into a neighboring thread's output range.
func decodeChunk(table *DecoderTable, in *Input, iv interval, subsequenceSize int, entry syncPoint, mode kernelMode, sync []syncPoint, out *OutputBuffer, outStart, outLimit int) (bool, error) {
	w := newBitWindowAt(in, entry.unit, entry.bit)
	state := entry.state

	subsequenceStart := iv.begin
	subIndex := iv.begin / subsequenceSize
	numSymbols := 0
	outPos := outStart

	for unitIdx := iv.begin; unitIdx < iv.end; {
		if !table.inRange(state) {
			return false, &CorruptionError{Subsequence: subIndex, Msg: "state left the valid range"}
		}
		e := table.entry(state)
		inData := w.unit < in.NumUnits
		state = (e.NextState << uint(e.NumBits)) | w.take(int(e.NumBits))
		for state < table.NumStates {
			state = (state << 1) | w.take(1)
		}
		// A symbol that begins in the trailing pad (reachable only through
		// the last thread's extended interval) is decoded but not counted.
		if inData {
			numSymbols++
		}

		if mode == modeWrite {
			if outPos >= outLimit {
				return false, ErrBufferUnderflow
			}
			if err := out.set(outPos, e.Symbol); err != nil {
				return false, err
			}
			outPos++
		}

		unitIdx = w.unit
		for unitIdx-subsequenceStart >= subsequenceSize {
			pos := w.at()
			switch mode {
			case modeSpeculate:
				sync[subIndex] = syncPoint{state: state, bit: pos.bit, unit: pos.unit, numSymbols: numSymbols}
			case modeResync:
				computed := syncPoint{state: state, bit: pos.bit, unit: pos.unit, numSymbols: numSymbols}
				if computed.sameBoundary(sync[subIndex]) {
					sync[subIndex].numSymbols = computed.numSymbols
					return true, nil
				}
				sync[subIndex] = computed
			}
			subsequenceStart += subsequenceSize
			subIndex++
			numSymbols = 0
		}
	}

	return false, nil
}
