package rcb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

//ErrSizeExceedsCapacity represents a block that can not fit even after full reclamation of delete pending space.
var ErrSizeExceedsCapacity = errors.New("Block size exceeds free space")

//ErrDuplicateKey represents an add for a key that is already live.
var ErrDuplicateKey = errors.New("Duplicate block key")

//ErrKeyNotFound represents a delete or read for an absent or non live key.
var ErrKeyNotFound = errors.New("Block not found")

//ErrIndexInsertFailed represents index and list disagreement on insert - corrupted bookkeeping.
var ErrIndexInsertFailed = errors.New("Index insert failed")

//ErrIndexEraseFailed represents index and list disagreement on erase - corrupted bookkeeping.
var ErrIndexEraseFailed = errors.New("Index erase failed")

//CompactableBuffer represents a keyed compactable ring buffer. Deletes are lazy - blocks are only flagged,
//compaction physically reclaims their space when an add can not be admitted from free space alone, and
//always before buffer content is emitted. All operations run under one exclusive per instance lock.
type CompactableBuffer struct {
	config       *RingConfig
	mutex        sync.Mutex
	ring         *RingBuffer
	arena        blockArena
	index        map[string]int32
	head         int32
	tail         int32
	pendingCount int //delete pending record count, may be non zero with zero pending bytes
}

func (b *CompactableBuffer) info() BufferInfo {
	return BufferInfo{
		Capacity:  b.config.Capacity,
		FreeBytes: b.ring.FreeBytes() + b.ring.DeletePendingBytes(),
		UsedBytes: b.ring.UsedBytes(),
	}
}

//Info returns current buffer stats.
func (b *CompactableBuffer) Info() BufferInfo {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.info()
}

//DeletePendingBytes returns bytes held by delete pending blocks.
func (b *CompactableBuffer) DeletePendingBytes() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.ring.DeletePendingBytes()
}

//Count returns live block count.
func (b *CompactableBuffer) Count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var result int
	for handle := b.head; handle != nilHandle; handle = b.arena.entry(handle).next {
		if !b.arena.entry(handle).deletePending {
			result++
		}
	}
	return result
}

//Keys returns live block keys in insertion order.
func (b *CompactableBuffer) Keys() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var result = make([]string, 0)
	for handle := b.head; handle != nilHandle; handle = b.arena.entry(handle).next {
		entry := b.arena.entry(handle)
		if !entry.deletePending {
			result = append(result, entry.key)
		}
	}
	return result
}

//Has returns true if a live block is stored under the passed in key.
func (b *CompactableBuffer) Has(key string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	handle, found := b.index[key]
	return found && !b.arena.entry(handle).deletePending
}

func (b *CompactableBuffer) pushTail(handle int32) {
	entry := b.arena.entry(handle)
	entry.prev = b.tail
	entry.next = nilHandle
	if b.tail != nilHandle {
		b.arena.entry(b.tail).next = handle
	} else {
		b.head = handle
	}
	b.tail = handle
}

func (b *CompactableBuffer) unlink(handle int32) {
	entry := b.arena.entry(handle)
	if entry.prev != nilHandle {
		b.arena.entry(entry.prev).next = entry.next
	} else {
		b.head = entry.next
	}
	if entry.next != nilHandle {
		b.arena.entry(entry.next).prev = entry.prev
	} else {
		b.tail = entry.prev
	}
}

//ensureSpace decides admission for a requested block size. Admission from free space needs no work,
//a size beyond free plus delete pending space can not be satisfied at all, anything in between pays
//for a compaction.
func (b *CompactableBuffer) ensureSpace(size int) error {
	if size <= b.ring.FreeBytes() {
		return nil
	}
	if size > b.ring.FreeBytes()+b.ring.DeletePendingBytes() {
		return ErrSizeExceedsCapacity
	}
	b.compact()
	if size > b.ring.FreeBytes() {
		return ErrSizeExceedsCapacity
	}
	return nil
}

//Add stores data under the passed in key at the logical end of the buffer. A key whose previous block is
//delete pending forces a compaction first, so the stale block never coexists with the new one. It returns
//current buffer stats, with ErrDuplicateKey for a live key or ErrSizeExceedsCapacity when data can not fit.
func (b *CompactableBuffer) Add(key string, data []byte) (BufferInfo, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if handle, found := b.index[key]; found {
		if !b.arena.entry(handle).deletePending {
			return b.info(), ErrDuplicateKey
		}
		b.compact()
		if _, found = b.index[key]; found {
			panic(ErrIndexInsertFailed)
		}
	}
	if err := b.ensureSpace(len(data)); err != nil {
		return b.info(), err
	}
	offset, err := b.ring.Append(data)
	if err != nil {
		return b.info(), fmt.Errorf("Failed to add block %v due to %v", key, err)
	}
	handle := b.arena.allocate(key, offset, len(data))
	b.pushTail(handle)
	b.index[key] = handle
	return b.info(), nil
}

//Delete flags the block stored under the passed in key as delete pending. No bytes are moved or released,
//compaction reclaims the space later. It returns current buffer stats, with ErrKeyNotFound for an absent
//or already delete pending key.
func (b *CompactableBuffer) Delete(key string) (BufferInfo, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	handle, found := b.index[key]
	if !found {
		return b.info(), ErrKeyNotFound
	}
	entry := b.arena.entry(handle)
	if entry.deletePending {
		return b.info(), ErrKeyNotFound
	}
	entry.deletePending = true
	b.ring.markPending(entry.size)
	b.pendingCount++
	return b.info(), nil
}

//compact removes delete pending blocks walking the insertion order list from tail to head, newest first,
//then rewrites every surviving block offset, since gap closing moves bytes of blocks not visited yet.
func (b *CompactableBuffer) compact() {
	if b.pendingCount == 0 {
		return
	}
	for handle := b.tail; handle != nilHandle; {
		entry := b.arena.entry(handle)
		prev := entry.prev
		if entry.deletePending {
			b.ring.reclaim(entry.offset, entry.size, handle == b.head, handle == b.tail)
			b.unlink(handle)
			if _, found := b.index[entry.key]; !found {
				panic(ErrIndexEraseFailed)
			}
			delete(b.index, entry.key)
			b.arena.release(handle)
		}
		handle = prev
	}
	b.pendingCount = 0
	b.rebuildOffsets()
}

//rebuildOffsets assigns each surviving block offset by walking the list from head to tail starting at
//the ring start cursor, advancing by block size and wrapping at the physical boundary.
func (b *CompactableBuffer) rebuildOffsets() {
	capacity := b.ring.Capacity()
	position := b.ring.start
	for handle := b.head; handle != nilHandle; {
		entry := b.arena.entry(handle)
		entry.offset = position
		position = (position + entry.size) % capacity
		handle = entry.next
	}
}

//Compact reclaims space held by delete pending blocks.
func (b *CompactableBuffer) Compact() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.compact()
}

//ReadEntry returns a copy of the block data stored under the passed in key.
func (b *CompactableBuffer) ReadEntry(key string) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	handle, found := b.index[key]
	if !found {
		return nil, ErrKeyNotFound
	}
	entry := b.arena.entry(handle)
	if entry.deletePending {
		return nil, ErrKeyNotFound
	}
	result := make([]byte, entry.size)
	if _, err := b.ring.ReadAt(result, entry.offset); err != nil {
		return nil, fmt.Errorf("Failed to read entry %v due to %v", key, err)
	}
	return result, nil
}

func (b *CompactableBuffer) readEntryAt(key string, out []byte, offset int64) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	handle, found := b.index[key]
	if !found {
		return 0, ErrKeyNotFound
	}
	entry := b.arena.entry(handle)
	if entry.deletePending {
		return 0, ErrKeyNotFound
	}
	bytesToRead := int64(entry.size) - offset
	if bytesToRead <= 0 {
		return 0, io.EOF
	}
	if int64(len(out)) < bytesToRead {
		bytesToRead = int64(len(out))
	}
	position := (entry.offset + int(offset)) % b.ring.Capacity()
	return b.ring.ReadAt(out[:bytesToRead], position)
}

//EntryReader returns io.Reader over the block stored under the passed in key.
func (b *CompactableBuffer) EntryReader(key string) (io.Reader, error) {
	return newEntryReader(b, key), nil
}

//EntryReaderAt returns io.ReaderAt over the block stored under the passed in key.
func (b *CompactableBuffer) EntryReaderAt(key string) (io.ReaderAt, error) {
	return newEntryReader(b, key), nil
}

//WriteTo compacts the buffer, then emits all live blocks in insertion order to the passed in writer.
//No delete pending bytes are ever surfaced.
func (b *CompactableBuffer) WriteTo(writer io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.compact()
	return b.ring.WriteTo(writer)
}

//Dump returns the concatenation of all live blocks in insertion order, oldest surviving block first.
func (b *CompactableBuffer) Dump() []byte {
	var result = new(bytes.Buffer)
	b.WriteTo(result)
	return result.Bytes()
}

//NewCompactableBuffer returns a new *CompactableBuffer or error. It takes *RingConfig as parameter.
func NewCompactableBuffer(config *RingConfig) (*CompactableBuffer, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("Failed to create compactable buffer %v", err)
	}
	ring, err := NewRingBuffer(config.Capacity)
	if err != nil {
		return nil, fmt.Errorf("Failed to create compactable buffer %v", err)
	}
	return &CompactableBuffer{
		config: config,
		ring:   ring,
		index:  make(map[string]int32),
		head:   nilHandle,
		tail:   nilHandle,
	}, nil
}

//New creates a new compactable ring buffer with the passed in capacity.
func New(capacity int) (*CompactableBuffer, error) {
	config, err := NewRingConfig(capacity)
	if err != nil {
		return nil, err
	}
	return NewCompactableBuffer(config)
}
