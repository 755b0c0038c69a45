package rcb

import (
	"fmt"
	"io"
)

//RingBuffer represents a fixed size byte region with wraparound aware append, read and gap closing primitives.
//The occupied span covers [start, end) modulo capacity, the free and delete pending counters partition the rest.
type RingBuffer struct {
	data          []byte
	start         int //logical start of the occupied region
	end           int //next append position
	free          int //bytes not occupied by any live or delete pending block
	deletePending int //bytes held by delete pending blocks, not yet reclaimed
}

//Capacity returns the fixed backing region size.
func (r *RingBuffer) Capacity() int {
	return len(r.data)
}

//FreeBytes returns bytes immediately available for append.
func (r *RingBuffer) FreeBytes() int {
	return r.free
}

//DeletePendingBytes returns bytes held by delete pending blocks.
func (r *RingBuffer) DeletePendingBytes() int {
	return r.deletePending
}

//UsedBytes returns bytes occupied by live blocks, delete pending space excluded.
func (r *RingBuffer) UsedBytes() int {
	return len(r.data) - r.free - r.deletePending
}

//Append copies data into the ring at the current end cursor, splitting into two copies when the write
//would cross the physical boundary. It returns the starting offset used, data has to fit in free space.
func (r *RingBuffer) Append(data []byte) (int, error) {
	if len(data) > r.free {
		return 0, fmt.Errorf("Failed to append %v bytes - only %v free", len(data), r.free)
	}
	offset := r.end
	first := len(r.data) - r.end
	if first > len(data) {
		first = len(data)
	}
	copy(r.data[r.end:], data[:first])
	copy(r.data, data[first:])
	r.end = (r.end + len(data)) % len(r.data)
	r.free -= len(data)
	return offset, nil
}

//markPending flags size bytes as delete pending, no bytes are moved or released.
func (r *RingBuffer) markPending(size int) {
	r.deletePending += size
}

//reclaim releases the space held by a delete pending block. A head or tail block only moves the matching
//cursor. An interior block shifts the logical region that follows it backward by size to close the gap,
//as a sequence of copies each bounded by the physical boundary on both the source and the destination side.
func (r *RingBuffer) reclaim(offset, size int, head, tail bool) {
	capacity := len(r.data)
	switch {
	case head:
		r.start = (offset + size) % capacity
	case tail:
		r.end = offset
	default:
		src := (offset + size) % capacity
		dst := offset
		bytesToMove := r.end - src
		if bytesToMove < 0 {
			bytesToMove += capacity
		}
		for bytesToMove > 0 {
			chunk := bytesToMove
			if limit := capacity - src; limit < chunk {
				chunk = limit
			}
			if limit := capacity - dst; limit < chunk {
				chunk = limit
			}
			copy(r.data[dst:dst+chunk], r.data[src:src+chunk])
			src = (src + chunk) % capacity
			dst = (dst + chunk) % capacity
			bytesToMove -= chunk
		}
		r.end = dst
	}
	r.deletePending -= size
	r.free += size
}

//ReadAt reads len(out) bytes starting at the passed in offset, wrapping at the physical boundary.
//It returns number of bytes read, or error.
func (r *RingBuffer) ReadAt(out []byte, offset int) (int, error) {
	capacity := len(r.data)
	if offset < 0 || offset >= capacity {
		return 0, fmt.Errorf("Invalid data access: offset: %v, capacity: %v", offset, capacity)
	}
	if len(out) > capacity {
		return 0, fmt.Errorf("Invalid data access: %v bytes requested, capacity: %v - %v", len(out), capacity, io.EOF)
	}
	first := capacity - offset
	if first > len(out) {
		first = len(out)
	}
	copy(out, r.data[offset:offset+first])
	copy(out[first:], r.data[:len(out)-first])
	return len(out), nil
}

//WriteTo emits the occupied region in logical order to the passed in writer, splitting into two writes
//when the region crosses the physical boundary. It returns number of bytes written, or error.
func (r *RingBuffer) WriteTo(writer io.Writer) (int64, error) {
	capacity := len(r.data)
	occupied := capacity - r.free
	if occupied == 0 {
		return 0, nil
	}
	first := capacity - r.start
	if first > occupied {
		first = occupied
	}
	written, err := writer.Write(r.data[r.start : r.start+first])
	if err != nil {
		return int64(written), fmt.Errorf("Failed to write buffer content %v", err)
	}
	if occupied > first {
		n, err := writer.Write(r.data[:occupied-first])
		written += n
		if err != nil {
			return int64(written), fmt.Errorf("Failed to write buffer content %v", err)
		}
	}
	return int64(written), nil
}

//NewRingBuffer creates a new ring buffer backed by a fixed region of the passed in capacity.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("Failed to create ring buffer - invalid capacity %v", capacity)
	}
	return &RingBuffer{
		data: make([]byte, capacity),
		free: capacity,
	}, nil
}
