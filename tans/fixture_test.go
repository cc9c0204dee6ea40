package tans

// This file is the minimal reference encoder mentioned in the module's
// design notes: it exists only to manufacture compressed streams with a
// known decoded output, for the round-trip and invariance tests in this
// package. It is not part of the public API.
//
// buildFixedRateTable collapses the general variable-rate tANS decode
// table into its simplest well-formed instance: every one of NumStates
// states decodes a distinct byte value (the state's own index) and always
// consumes exactly k = log2(NumStates) bits to reach the state whose index
// equals the bits just read. Encoding such a table reduces to "write the
// next symbol's table index as k bits", which is straightforward to get
// right without running the code, unlike inverting a general-purpose
// variable-rate table.

func buildFixedRateTable(k uint) *DecoderTable {
	n := uint32(1) << k
	entries := make([]TableEntry, n)
	for i := range entries {
		entries[i] = TableEntry{Symbol: byte(i), NextState: 1, NumBits: uint8(k)}
	}
	return &DecoderTable{NumStates: n, Entries: entries}
}

// encodeFixedRateTable packs symbols into units for buildFixedRateTable(k):
// each symbol after the first is encoded as the table index transition that
// makes the decoder land on it, so decoding the result reproduces symbols
// exactly. firstBit sets the returned Input's FirstBit, and correspondingly
// shifts where the first transition is written within unit 0, by
// unitBits-firstBit bits: passing unitBits (no bits pre-consumed) packs the
// transitions starting at bit 0, matching a stream whose encoder filled its
// last unit completely. skip+len(symbols)*k must be a multiple of unitBits,
// so the packed bits end exactly on a unit boundary with no partial unit.
func encodeFixedRateTable(k uint, symbols []byte, padUnits int, firstBit int) (*DecoderTable, *Input, uint32) {
	table := buildFixedRateTable(k)
	skip := unitBits - firstBit
	if skip < 0 || skip >= unitBits {
		panic("encodeFixedRateTable: firstBit must be in (0, unitBits]")
	}
	totalBits := skip + len(symbols)*int(k)
	if totalBits%unitBits != 0 {
		panic("encodeFixedRateTable: skip+len(symbols)*k must be a multiple of unitBits")
	}
	numUnits := totalBits / unitBits
	units := make([]Unit, numUnits+padUnits)

	pos := skip
	write := func(v uint32, bits uint) {
		for b := uint(0); b < bits; b++ {
			bit := (v >> b) & 1
			unit := pos / unitBits
			off := pos % unitBits
			units[unit] |= Unit(bit) << uint(off)
			pos++
		}
	}
	// transition i (i = 0..len(symbols)-2) carries symbols[i+1]'s table
	// index; the final transition's bits are never looked up (decode stops
	// exactly at the unit boundary after emitting the last symbol) and are
	// left zero.
	for i := 0; i < len(symbols)-1; i++ {
		write(uint32(symbols[i+1]), k)
	}

	initialState := table.NumStates + uint32(symbols[0])
	return table, &Input{Units: units, NumUnits: numUnits, FirstBit: firstBit}, initialState
}

// topUpTable builds a 4-state table whose state-4 entry has
// NextState<<NumBits (1<<1 = 2) strictly below NumStates (4): the primary
// table lookup alone never lands in [NumStates, 2*NumStates), so every visit
// to state 4 must fall through the renormalization loop's extra-bit top-up
// before the result is usable. The other three entries need no top-up
// (their NextState<<NumBits already reaches NumStates), so a trace through
// this table exercises both paths.
func topUpTable() *DecoderTable {
	return &DecoderTable{
		NumStates: 4,
		Entries: []TableEntry{
			{Symbol: 'A', NextState: 1, NumBits: 1}, // state 4: 1<<1=2 < 4, always tops up
			{Symbol: 'B', NextState: 2, NumBits: 1}, // state 5: 2<<1=4
			{Symbol: 'C', NextState: 3, NumBits: 1}, // state 6: 3<<1=6
			{Symbol: 'D', NextState: 1, NumBits: 2}, // state 7: 1<<2=4
		},
	}
}
