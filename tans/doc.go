// Package tans decodes tANS-coded (tabled Asymmetric Numeral System)
// streams using a self-synchronizing parallel algorithm: the compressed
// stream is split into fixed-size subsequences, every worker goroutine
// speculatively decodes from an arbitrary offset, wrong boundary guesses
// are repaired by iterative resynchronization, and the final output
// position of each subsequence is resolved by a prefix-sum over decoded
// symbol counts before a last pass writes the output.
//
// This package decodes only; building a DecoderTable from symbol
// frequencies, and producing the compressed stream a DecoderTable decodes,
// are both outside its scope.
package tans
