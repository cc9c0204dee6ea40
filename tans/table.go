package tans

// TableEntry is one row of a DecoderTable, selected by state-NumStates.
// It names exactly the three things a tANS decode step needs at a given
// state: the symbol it emits, the state to carry forward (before
// renormalization), and the minimum number of bits to consume before
// checking whether that carried state needs topping up. This mirrors
// decSymbol in zstd/fse_decoder.go ({newState, symbol, nbBits}),
// generalized to a variable per-entry renormalization instead of one fixed
// table log.
type TableEntry struct {
	Symbol    byte
	NextState uint32
	NumBits   uint8
}

// DecoderTable is the caller-supplied table indexed by state-NumStates,
// valid for states in [NumStates, 2*NumStates). Building this table from
// symbol frequencies is the encoder's job and out of scope here; a
// DecoderTable arrives fully formed.
type DecoderTable struct {
	NumStates uint32
	Entries   []TableEntry
}

// Validate checks the table's internal shape invariants. It does not and
// cannot check that NextState values are themselves well-formed transition
// targets; a logically inconsistent but shape-valid table surfaces as a
// CorruptionError during decode instead.
func (t *DecoderTable) Validate() error {
	if t.NumStates == 0 {
		return &ConfigError{Field: "NumStates", Value: int(t.NumStates), Msg: "must be positive"}
	}
	if uint32(len(t.Entries)) != t.NumStates {
		return &ConfigError{Field: "len(Entries)", Value: len(t.Entries), Msg: "must equal NumStates"}
	}
	return nil
}

func (t *DecoderTable) entry(state uint32) TableEntry {
	return t.Entries[state-t.NumStates]
}

func (t *DecoderTable) inRange(state uint32) bool {
	return state >= t.NumStates && state < 2*t.NumStates
}
