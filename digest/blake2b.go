package digest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"math/bits"
)

const (
	// Blake2bBlockSize is the block size of BLAKE2b in bytes.
	Blake2bBlockSize = 128
	// Blake2bMaxSize is the largest BLAKE2b output length in bytes.
	Blake2bMaxSize = 64
)

// ErrInvalidDigestSize is returned for a BLAKE2b output length outside [1, 64].
var ErrInvalidDigestSize = errors.New("invalid digest size")

var blake2bIV = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

var blake2bSigma = [12][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
}

type blake2b struct {
	h      [8]uint64
	t      uint64
	block  [Blake2bBlockSize]byte
	offset int
	size   int
}

// NewBlake2b returns a new hash.Hash computing an unkeyed BLAKE2b checksum of
// size bytes.
func NewBlake2b(size int) (hash.Hash, error) {
	if err := checkBlake2bSize(size); err != nil {
		return nil, err
	}
	d := &blake2b{size: size}
	d.Reset()
	return d, nil
}

func checkBlake2bSize(size int) error {
	if size < 1 || size > Blake2bMaxSize {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidDigestSize, size, Blake2bMaxSize)
	}
	return nil
}

func (d *blake2b) Reset() {
	d.h = blake2bIV
	d.h[0] ^= 0x01010000 | uint64(d.size)
	d.t = 0
	d.offset = 0
	d.block = [Blake2bBlockSize]byte{}
}

func (d *blake2b) Size() int { return d.size }

func (d *blake2b) BlockSize() int { return Blake2bBlockSize }

// Write keeps the most recent block buffered, even when full, so that Sum can
// compress it with the last-block flag set.
func (d *blake2b) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if d.offset == Blake2bBlockSize {
			d.t += Blake2bBlockSize
			blake2bCompress(&d.h, &d.block, d.t, false)
			d.offset = 0
		}
		c := copy(d.block[d.offset:], p)
		d.offset += c
		p = p[c:]
	}
	return n, nil
}

func (d *blake2b) Sum(in []byte) []byte {
	d0 := *d
	var out [Blake2bMaxSize]byte
	d0.finalize(&out)
	return append(in, out[:d0.size]...)
}

func (d *blake2b) finalize(out *[Blake2bMaxSize]byte) {
	d.t += uint64(d.offset)
	for i := d.offset; i < Blake2bBlockSize; i++ {
		d.block[i] = 0
	}
	blake2bCompress(&d.h, &d.block, d.t, true)

	for i, v := range d.h {
		binary.LittleEndian.PutUint64(out[i*8:], v)
	}
}

// Blake2b returns the unkeyed BLAKE2b checksum of data with an output length
// of size bytes.
func Blake2b(data []byte, size int) ([]byte, error) {
	h, err := NewBlake2b(size)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// Blake2b256 returns the 32-byte BLAKE2b checksum of data.
func Blake2b256(data []byte) [32]byte {
	d := &blake2b{size: 32}
	d.Reset()
	d.Write(data)

	var out [Blake2bMaxSize]byte
	d.finalize(&out)

	var sum [32]byte
	copy(sum[:], out[:32])
	return sum
}

func blake2bCompress(h *[8]uint64, block *[Blake2bBlockSize]byte, t uint64, last bool) {
	var m [16]uint64
	for i := range m {
		m[i] = binary.LittleEndian.Uint64(block[i*8:])
	}

	var v [16]uint64
	copy(v[:8], h[:])
	copy(v[8:], blake2bIV[:])
	v[12] ^= t
	if last {
		v[14] = ^v[14]
	}

	g := func(a, b, c, d int, x, y uint64) {
		v[a] = v[a] + v[b] + x
		v[d] = bits.RotateLeft64(v[d]^v[a], -32)
		v[c] = v[c] + v[d]
		v[b] = bits.RotateLeft64(v[b]^v[c], -24)
		v[a] = v[a] + v[b] + y
		v[d] = bits.RotateLeft64(v[d]^v[a], -16)
		v[c] = v[c] + v[d]
		v[b] = bits.RotateLeft64(v[b]^v[c], -63)
	}

	for _, s := range blake2bSigma {
		g(0, 4, 8, 12, m[s[0]], m[s[1]])
		g(1, 5, 9, 13, m[s[2]], m[s[3]])
		g(2, 6, 10, 14, m[s[4]], m[s[5]])
		g(3, 7, 11, 15, m[s[6]], m[s[7]])
		g(0, 5, 10, 15, m[s[8]], m[s[9]])
		g(1, 6, 11, 12, m[s[10]], m[s[11]])
		g(2, 7, 8, 13, m[s[12]], m[s[13]])
		g(3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}
