// Package digest implements the two message digests used by certificate
// signatures.
//
// SHA128 is a 128-bit Merkle–Damgård digest: SHA-256's message schedule and
// round function cut down to four working words and 32 rounds. Blake2b is
// unkeyed BLAKE2b with a selectable output length of 1 to 64 bytes.
//
// Both digests implement hash.Hash and have one-shot helpers:
//
//	sum := digest.SHA128Sum([]byte("abc"))
//	out, err := digest.Blake2b([]byte("abc"), 32)
//
// Neither digest is collision resistant enough for production use.
package digest

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

const (
	// SHA128Size is the size of a SHA128 checksum in bytes.
	SHA128Size = 16
	// SHA128BlockSize is the block size of SHA128 in bytes.
	SHA128BlockSize = 64
)

var sha128IV = [4]uint32{0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a}

var sha128K = [32]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
	0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
	0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
	0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
	0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
}

type sha128 struct {
	h   [4]uint32
	x   [SHA128BlockSize]byte
	nx  int
	len uint64
}

// NewSHA128 returns a new hash.Hash computing the SHA128 checksum.
func NewSHA128() hash.Hash {
	d := new(sha128)
	d.Reset()
	return d
}

func (d *sha128) Reset() {
	d.h = sha128IV
	d.nx = 0
	d.len = 0
}

func (d *sha128) Size() int { return SHA128Size }

func (d *sha128) BlockSize() int { return SHA128BlockSize }

func (d *sha128) Write(p []byte) (int, error) {
	nn := len(p)
	d.len += uint64(nn)

	if d.nx > 0 {
		n := copy(d.x[d.nx:], p)
		d.nx += n
		if d.nx == SHA128BlockSize {
			blockSHA128(&d.h, d.x[:])
			d.nx = 0
		}
		p = p[n:]
	}
	if len(p) >= SHA128BlockSize {
		n := len(p) &^ (SHA128BlockSize - 1)
		blockSHA128(&d.h, p[:n])
		p = p[n:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}

	return nn, nil
}

func (d *sha128) Sum(in []byte) []byte {
	d0 := *d
	sum := d0.checkSum()
	return append(in, sum[:]...)
}

func (d *sha128) checkSum() [SHA128Size]byte {
	length := d.len

	// 0x80, zeros up to 56 mod 64, then the 64-bit big-endian bit length
	var tmp [SHA128BlockSize + 8]byte
	tmp[0] = 0x80
	var t uint64
	if length%64 < 56 {
		t = 56 - length%64
	} else {
		t = 64 + 56 - length%64
	}

	// The high word of the length field is always zero and the low word
	// holds the bit length modulo 2^32.
	binary.BigEndian.PutUint64(tmp[t:], uint64(uint32(length<<3)))
	d.Write(tmp[:t+8])

	var out [SHA128Size]byte
	for i, v := range d.h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// SHA128Sum returns the SHA128 checksum of data.
func SHA128Sum(data []byte) [SHA128Size]byte {
	var d sha128
	d.Reset()
	d.Write(data)
	return d.checkSum()
}

func blockSHA128(h *[4]uint32, p []byte) {
	var w [32]uint32

	for len(p) >= SHA128BlockSize {
		for i := 0; i < 16; i++ {
			w[i] = binary.BigEndian.Uint32(p[i*4:])
		}
		for i := 16; i < 32; i++ {
			v1 := w[i-2]
			s1 := bits.RotateLeft32(v1, -17) ^ bits.RotateLeft32(v1, -19) ^ (v1 >> 10)
			v2 := w[i-15]
			s0 := bits.RotateLeft32(v2, -7) ^ bits.RotateLeft32(v2, -18) ^ (v2 >> 3)
			w[i] = s1 + w[i-7] + s0 + w[i-16]
		}

		a, b, c, dd := h[0], h[1], h[2], h[3]

		for i := 0; i < 32; i++ {
			t1 := dd +
				(bits.RotateLeft32(a, -6) ^ bits.RotateLeft32(a, -11) ^ bits.RotateLeft32(a, -25)) +
				((a & b) ^ (^a & c)) + sha128K[i] + w[i]
			t2 := (bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)) +
				((a & b) ^ (a & c) ^ (b & c))

			dd = c
			c = b
			b = a
			a = t1 + t2
		}

		h[0] += a
		h[1] += b
		h[2] += c
		h[3] += dd

		p = p[SHA128BlockSize:]
	}
}
