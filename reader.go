package rcb

//entryReader reads a single block's data. The block offset is resolved under the buffer lock on every
//call, so compaction moving the block between reads stays invisible to the reader.
type entryReader struct {
	buffer   *CompactableBuffer
	key      string
	position int
}

func (r *entryReader) Read(out []byte) (int, error) {
	bytesRead, err := r.ReadAt(out, int64(r.position))
	if err == nil {
		r.position += bytesRead
	}
	return bytesRead, err
}

func (r *entryReader) ReadAt(out []byte, offset int64) (int, error) {
	return r.buffer.readEntryAt(r.key, out, offset)
}

func newEntryReader(buffer *CompactableBuffer, key string) *entryReader {
	return &entryReader{buffer: buffer, key: key}
}
