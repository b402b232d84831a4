package memview

import (
	"bytes"
	"io"
)

// MemView is a view over a sequence of byte slices, presented as one logical
// byte string. It exists so that an incremental parser can be fed buffers of
// arbitrary sizes and hand out ranges of those buffers (header values, body
// data, chunk data) without copying.
//
// A MemView never owns or modifies the underlying storage. Callers must keep
// the backing slices alive and unmodified for as long as any view derived
// from them is in use. Copying a MemView or passing one by value copies only
// the slice headers; use DeepCopy for a view with an independent header list.
//
// The zero value is an empty MemView ready for use.
type MemView struct {
	buf    [][]byte
	length int64
}

// New creates a view of data without copying it. The caller must ensure data
// remains valid and unmodified while the view is live.
func New(data []byte) MemView {
	return MemView{
		buf:    [][]byte{data},
		length: int64(len(data)),
	}
}

// Append extends dst with the contents of src. No bytes are copied; dst
// simply references src's storage as well.
func (dst *MemView) Append(src MemView) {
	dst.buf = append(dst.buf, src.buf...)
	dst.length += src.length
}

// DeepCopy returns a view whose header list is independent of mv. The
// underlying byte storage is still shared.
func (mv MemView) DeepCopy() MemView {
	newBuf := make([][]byte, len(mv.buf))
	copy(newBuf, mv.buf)
	return MemView{
		buf:    newBuf,
		length: mv.length,
	}
}

// Clear empties the view without releasing its header storage.
func (mv *MemView) Clear() {
	mv.buf = mv.buf[:0]
	mv.length = 0
}

func (mv MemView) Len() int64 {
	return mv.length
}

// GetByte returns the byte at the given index, or 0 if index is out of
// bounds.
func (mv MemView) GetByte(index int64) byte {
	if index < 0 {
		return 0
	}

	n := index
	for i := 0; i < len(mv.buf); i++ {
		lb := int64(len(mv.buf[i]))
		if n < lb {
			return mv.buf[i][n]
		}
		n -= lb
	}
	return 0
}

// SubView returns mv[start:end] (end not inclusive). Returns an empty view
// if the range is empty or invalid. The result references the same storage
// as mv and remains valid after mv itself is cleared or advanced.
func (mv MemView) SubView(start, end int64) MemView {
	if start < 0 || start >= end || end > mv.length {
		return MemView{}
	}

	startBuf, endBuf := -1, -1
	var startOffset, endOffset int

	var n int64
	for i, b := range mv.buf {
		lb := int64(len(b))
		if startBuf == -1 && n+lb > start {
			startBuf = i
			startOffset = int(start - n)
		}
		if endBuf == -1 && n+lb >= end {
			endBuf = i
			endOffset = int(end - n)
			break
		}
		n += lb
	}

	if startBuf == -1 || endBuf == -1 {
		return MemView{}
	}

	newBuf := make([][]byte, endBuf+1-startBuf)
	copy(newBuf, mv.buf[startBuf:endBuf+1])
	sub := MemView{
		buf:    newBuf,
		length: end - start,
	}
	if len(sub.buf) == 1 {
		sub.buf[0] = sub.buf[0][startOffset:endOffset]
	} else {
		sub.buf[0] = sub.buf[0][startOffset:]
		sub.buf[len(sub.buf)-1] = sub.buf[len(sub.buf)-1][:endOffset]
	}
	return sub
}

// Index returns the index of the first instance of sep at or after start, or
// -1 if sep is not present. The search handles sep spanning two or more of
// the underlying slices, but like the classic naive scan it assumes sep has
// no repeated prefix; every needle used by this module (CRLF, HTTP method
// names, "HTTP/1.") satisfies that.
func (mv MemView) Index(start int64, sep []byte) int64 {
	if start < 0 || start > mv.length {
		return -1
	}
	if len(sep) == 0 {
		return start
	}

	// Locate the slice containing start.
	bufIdx := 0
	var base int64 // index of mv.buf[bufIdx][0] within mv
	offset := 0
	for ; bufIdx < len(mv.buf); bufIdx++ {
		lb := int64(len(mv.buf[bufIdx]))
		if start < base+lb {
			offset = int(start - base)
			break
		}
		base += lb
	}
	if bufIdx == len(mv.buf) {
		return -1
	}

	matched := 0 // sep bytes matched so far, possibly spanning slices
	for ; bufIdx < len(mv.buf); bufIdx++ {
		haystack := mv.buf[bufIdx]
		i := offset
		for i < len(haystack) {
			if matched == 0 {
				// Fast path: search within this slice.
				if found := bytes.Index(haystack[i:], sep); found >= 0 {
					return base + int64(i+found)
				}
				// Only a proper prefix of sep can remain at the slice tail.
				tail := len(haystack) - len(sep) + 1
				if i < tail {
					i = tail
				}
				if i >= len(haystack) {
					break
				}
			}
			if haystack[i] == sep[matched] {
				matched++
				if matched == len(sep) {
					return base + int64(i) - int64(len(sep)-1)
				}
			} else if haystack[i] == sep[0] {
				matched = 1
			} else {
				matched = 0
			}
			i++
		}
		base += int64(len(haystack))
		offset = 0
	}
	return -1
}

// Equal reports whether two views contain the same bytes, regardless of how
// those bytes are split across underlying slices.
func (left MemView) Equal(right MemView) bool {
	if left.length != right.length {
		return false
	}

	li, lo := 0, 0
	ri, ro := 0, 0
	for idx := int64(0); idx < left.length; idx++ {
		for lo >= len(left.buf[li]) {
			li++
			lo = 0
		}
		for ro >= len(right.buf[ri]) {
			ri++
			ro = 0
		}
		if left.buf[li][lo] != right.buf[ri][ro] {
			return false
		}
		lo++
		ro++
	}
	return true
}

// String copies the viewed bytes into a new string.
func (mv MemView) String() string {
	var buf bytes.Buffer
	io.Copy(&buf, mv.CreateReader())
	return buf.String()
}

// CreateReader returns a reader positioned at the start of the view. The
// reader observes data appended to mv after its creation.
func (mv *MemView) CreateReader() *MemViewReader {
	return &MemViewReader{mv: mv}
}

// MemViewReader is a cursor over a MemView. Parsers consume input through it
// one byte at a time; BytesRead tells the caller how far the cursor advanced
// so consumed input can be dropped from the pending view.
type MemViewReader struct {
	mv *MemView

	// Index of the slice to read next.
	rIndex int

	// Offset into mv.buf[rIndex] of the next read.
	rOffset int

	// Total bytes consumed so far.
	gOffset int64
}

var _ io.Reader = (*MemViewReader)(nil)

// BytesRead returns the number of bytes consumed from the view so far.
func (r *MemViewReader) BytesRead() int64 {
	return r.gOffset
}

// ReadByte consumes and returns the next byte. Returns io.EOF when the view
// is exhausted; more data may become available after another Append.
func (r *MemViewReader) ReadByte() (byte, error) {
	for r.rIndex < len(r.mv.buf) {
		cur := r.mv.buf[r.rIndex]
		if r.rOffset < len(cur) {
			b := cur[r.rOffset]
			r.rOffset++
			r.gOffset++
			return b, nil
		}
		r.rIndex++
		r.rOffset = 0
	}
	return 0, io.EOF
}

// PeekByte returns the next byte without consuming it. Returns io.EOF when
// no byte is available yet.
func (r *MemViewReader) PeekByte() (byte, error) {
	idx, off := r.rIndex, r.rOffset
	for idx < len(r.mv.buf) {
		cur := r.mv.buf[idx]
		if off < len(cur) {
			return cur[off], nil
		}
		idx++
		off = 0
	}
	return 0, io.EOF
}

// Skip consumes up to n bytes and returns the number actually consumed.
func (r *MemViewReader) Skip(n int64) int64 {
	var skipped int64
	for skipped < n && r.rIndex < len(r.mv.buf) {
		cur := r.mv.buf[r.rIndex]
		avail := int64(len(cur) - r.rOffset)
		if avail > n-skipped {
			r.rOffset += int(n - skipped)
			r.gOffset += n - skipped
			return n
		}
		skipped += avail
		r.gOffset += avail
		r.rIndex++
		r.rOffset = 0
	}
	return skipped
}

// Read implements io.Reader. Returns io.EOF only when nothing was read.
func (r *MemViewReader) Read(out []byte) (int, error) {
	if len(out) == 0 {
		return 0, nil
	} else if r.rIndex >= len(r.mv.buf) {
		return 0, io.EOF
	}

	bytesRead := 0
	for i := r.rIndex; i < len(r.mv.buf); i++ {
		cur := r.mv.buf[i][r.rOffset:]
		cp := copy(out[bytesRead:], cur)
		bytesRead += cp
		r.gOffset += int64(cp)
		if cp == len(cur) {
			r.rIndex++
			r.rOffset = 0
		} else {
			r.rOffset += cp
			return bytesRead, nil
		}
	}
	return bytesRead, nil
}

// WriteTo makes MemView efficient as a source in io.Copy.
func (r *MemViewReader) WriteTo(dst io.Writer) (int64, error) {
	var written int64
	for r.rIndex < len(r.mv.buf) {
		cur := r.mv.buf[r.rIndex][r.rOffset:]
		n, err := dst.Write(cur)
		written += int64(n)
		r.gOffset += int64(n)
		if err != nil {
			r.rOffset += n
			return written, err
		}
		r.rIndex++
		r.rOffset = 0
	}
	return written, nil
}
