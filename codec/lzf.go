package codec

import "fmt"

const (
	lzfHashLog  = 12
	lzfHashSize = 1 << lzfHashLog

	lzfMaxLit = 1 << 5
	lzfMaxOff = 1 << 13
	lzfMaxRef = (1 << 8) + (1 << 3)
)

// LZF is the native byte-oriented LZ compressor.
//
// A 4096-entry hash table over a rolling two-byte prefix locates matches of
// at least three bytes within the previous 8192 bytes. Matches are encoded
// in two or three control bytes (length up to 264), literals in runs of up
// to 32 bytes prefixed by a length byte.
type LZF struct{}

// Name returns "lzf".
func (LZF) Name() string { return "lzf" }

// Flag returns FlagLZF.
func (LZF) Flag() Flag { return FlagLZF }

// CompressBlock implements Codec.
func (LZF) CompressBlock(dst, src []byte) int {
	return lzfCompress(src, dst)
}

// DecompressBlock implements Codec.
func (LZF) DecompressBlock(dst, src []byte) (int, error) {
	n := lzfDecompress(src, dst)
	if n == 0 && len(dst) > 0 {
		return 0, fmt.Errorf("%w: lzf stream", ErrCorrupt)
	}
	return n, nil
}

func lzfFirst(in []byte, p int) uint32 {
	return uint32(in[p])<<8 | uint32(in[p+1])
}

func lzfNext(v uint32, in []byte, p int) uint32 {
	return v<<8 | uint32(in[p+2])
}

func lzfIndex(h uint32) uint32 {
	v := (h ^ (h << 5)) >> (3*8 - lzfHashLog)
	return (v - h*5) & (lzfHashSize - 1)
}

// lzfCompress returns the number of bytes written to out, or 0 when the
// compressed form does not fit.
func lzfCompress(in, out []byte) int {
	inLen, outLen := len(in), len(out)
	if inLen == 0 || outLen < 2 {
		return 0
	}

	// Positions are stored +1 so the zero value means "empty".
	var htab [lzfHashSize]int32

	ip, op := 0, 1 // out[0] is reserved for the first literal run length.
	lit := 0

	if inLen >= 2 {
		hval := lzfFirst(in, ip)
		for ip < inLen-2 {
			hval = lzfNext(hval, in, ip)
			slot := lzfIndex(hval)
			ref := int(htab[slot]) - 1
			htab[slot] = int32(ip + 1)

			if ref >= 0 && ref < ip {
				off := ip - ref - 1
				if off < lzfMaxOff &&
					in[ref] == in[ip] && in[ref+1] == in[ip+1] && in[ref+2] == in[ip+2] {
					length := 2
					maxLen := inLen - ip - length
					if maxLen > lzfMaxRef {
						maxLen = lzfMaxRef
					}

					undo := 0
					if lit == 0 {
						undo = 1
					}
					if op+3+1 >= outLen && op-undo+3+1 >= outLen {
						return 0
					}

					out[op-lit-1] = byte(lit - 1) // close the literal run
					op -= undo                    // drop it if empty

					for {
						length++
						if length >= maxLen || in[ref+length] != in[ip+length] {
							break
						}
					}

					length -= 2 // now the number of bytes minus one
					ip++

					if length < 7 {
						out[op] = byte(off>>8) + byte(length<<5)
						op++
					} else {
						out[op] = byte(off>>8) + byte(7<<5)
						out[op+1] = byte(length - 7)
						op += 2
					}
					out[op] = byte(off)
					op++

					lit = 0
					op++ // reserve the next run length byte

					ip += length + 1
					if ip >= inLen-2 {
						break
					}

					ip--
					hval = lzfFirst(in, ip)
					hval = lzfNext(hval, in, ip)
					htab[lzfIndex(hval)] = int32(ip + 1)
					ip++
					hval = lzfFirst(in, ip)
					continue
				}
			}

			if op >= outLen {
				return 0
			}
			lit++
			out[op] = in[ip]
			op++
			ip++

			if lit == lzfMaxLit {
				out[op-lit-1] = byte(lit - 1)
				lit = 0
				op++
			}
		}
	}

	if op+3 > outLen {
		return 0
	}

	for ip < inLen {
		if op >= outLen {
			return 0
		}
		lit++
		out[op] = in[ip]
		op++
		ip++

		if lit == lzfMaxLit {
			out[op-lit-1] = byte(lit - 1)
			lit = 0
			op++
		}
	}

	out[op-lit-1] = byte(lit - 1)
	if lit == 0 {
		op--
	}
	return op
}

// lzfDecompress returns the number of bytes written to out, or 0 if the
// input is malformed or out is too small.
func lzfDecompress(in, out []byte) int {
	inLen, outLen := len(in), len(out)
	ip, op := 0, 0

	for ip < inLen {
		ctrl := int(in[ip])
		ip++

		if ctrl < lzfMaxLit {
			ctrl++
			if op+ctrl > outLen || ip+ctrl > inLen {
				return 0
			}
			copy(out[op:op+ctrl], in[ip:ip+ctrl])
			op += ctrl
			ip += ctrl
			continue
		}

		length := ctrl >> 5
		ref := op - ((ctrl & 0x1f) << 8) - 1

		if ip >= inLen {
			return 0
		}
		if length == 7 {
			length += int(in[ip])
			ip++
			if ip >= inLen {
				return 0
			}
		}
		ref -= int(in[ip])
		ip++

		if op+length+2 > outLen || ref < 0 {
			return 0
		}

		// Byte-wise: source and destination may overlap.
		for i := 0; i < length+2; i++ {
			out[op] = out[ref]
			op++
			ref++
		}
	}

	return op
}
