package rcb

const nilHandle = int32(-1)

//blockEntry represents a stored block record. Entries live in an arena addressed by stable handles,
//prev/next link them in insertion order - the head is the oldest surviving block, the tail the newest.
type blockEntry struct {
	key           string
	offset        int //logical start position within the ring
	size          int
	deletePending bool
	prev          int32
	next          int32
}

//BufferInfo represents buffer space stats. FreeBytes includes reclaimable delete pending space,
//UsedBytes excludes it.
type BufferInfo struct {
	Capacity  int
	FreeBytes int
	UsedBytes int
}

//blockArena owns all block entries, released handles are recycled through a free list.
type blockArena struct {
	entries  []blockEntry
	freeList []int32
}

func (a *blockArena) entry(handle int32) *blockEntry {
	return &a.entries[handle]
}

func (a *blockArena) allocate(key string, offset, size int) int32 {
	entry := blockEntry{key: key, offset: offset, size: size, prev: nilHandle, next: nilHandle}
	if count := len(a.freeList); count > 0 {
		handle := a.freeList[count-1]
		a.freeList = a.freeList[:count-1]
		a.entries[handle] = entry
		return handle
	}
	a.entries = append(a.entries, entry)
	return int32(len(a.entries) - 1)
}

func (a *blockArena) release(handle int32) {
	a.entries[handle] = blockEntry{prev: nilHandle, next: nilHandle}
	a.freeList = append(a.freeList, handle)
}
