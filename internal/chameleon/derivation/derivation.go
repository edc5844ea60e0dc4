// Package derivation wraps one fuzzer-corpus entry: the walk that produced
// a byte string and the byte string itself, together with the stable
// on-disk serialization a corpus directory persists entries under.
package derivation

import (
	"fmt"
	"hash/fnv"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/dekarrin/rezi"
)

// Default capacities a fresh Derivation reserves for its slices, matching
// the loader's DefaultWalkCapacity/DefaultOutputCapacity so a corpus entry
// and the buffers that produced it start life the same size.
const (
	DefaultWalkCapacity  = 1024
	DefaultBytesCapacity = 4096
)

// Derivation is one input/output pair a generate or mutate call produced:
// the sequence of alternative choices (Walk) and the bytes they emitted
// (Bytes).
type Derivation struct {
	Walk  []uint32
	Bytes []byte
}

// New returns an empty Derivation with the default reserved capacities.
func New() *Derivation {
	return &Derivation{
		Walk:  make([]uint32, 0, DefaultWalkCapacity),
		Bytes: make([]byte, 0, DefaultBytesCapacity),
	}
}

// FromWalkAndBytes copies walk[:length] and the given bytes into a fresh
// Derivation, as produced by one loader.Chameleon.Generate or Mutate call.
func FromWalkAndBytes(walk []uint32, length int, out []byte) *Derivation {
	d := New()
	d.Walk = append(d.Walk, walk[:length]...)
	d.Bytes = append(d.Bytes, out...)
	return d
}

// Clone returns a copy of d with the same reserved capacities as New would
// give a fresh Derivation, not merely len(d.Walk)/len(d.Bytes) — a plain
// struct-literal copy of a Go slice header would instead inherit whatever
// capacity the original slice happened to grow to, which silently leaks the
// source's cap() into every copy.
func (d *Derivation) Clone() *Derivation {
	clone := New()
	clone.Walk = append(clone.Walk, d.Walk...)
	clone.Bytes = append(clone.Bytes, d.Bytes...)
	return clone
}

// Encode serializes d to its stable on-disk binary form.
func (d *Derivation) Encode() []byte {
	return rezi.EncBinary(d)
}

// Decode builds a Derivation from bytes previously produced by Encode.
func Decode(data []byte) (*Derivation, error) {
	d := &Derivation{}
	n, err := rezi.DecBinary(data, d)
	if err != nil {
		return nil, diag.WrapIO("decoding derivation", err)
	}
	if n != len(data) {
		return nil, diag.WrapIO("decoding derivation", fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data)))
	}
	return d, nil
}

// FileName returns the stable corpus filename for d: chameleon-<hash>.bin,
// where hash is the 16-hex-digit FNV-1a hash of d's encoded bytes.
func (d *Derivation) FileName() string {
	enc := d.Encode()
	h := fnv.New64a()
	h.Write(enc)
	return hashFileName(h.Sum64())
}

func hashFileName(sum uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[sum&0xf]
		sum >>= 4
	}
	return "chameleon-" + string(buf) + ".bin"
}
