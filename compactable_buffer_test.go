package rcb_test

import (
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/viant/rcb"
)

func assertInfoInvariant(t *testing.T, buffer *rcb.CompactableBuffer) {
	info := buffer.Info()
	assert.Equal(t, info.Capacity, info.FreeBytes+info.UsedBytes)
}

func TestCompactableBuffer(t *testing.T) {
	config, err := rcb.NewRingConfig(1024)
	assert.Nil(t, err)
	buffer, err := rcb.NewCompactableBuffer(config)
	assert.Nil(t, err)

	info, err := buffer.Add("k1", []byte("abcdeflors"))
	assert.Nil(t, err)
	assert.Equal(t, 10, info.UsedBytes)

	info, err = buffer.Add("k2", []byte("xyz1024zyx131213123123213"))
	assert.Nil(t, err)
	assert.Equal(t, 35, info.UsedBytes)

	data, err := buffer.ReadEntry("k1")
	assert.Nil(t, err)
	assert.Equal(t, "abcdeflors", string(data))

	{
		reader, err := buffer.EntryReader("k1")
		assert.Nil(t, err)
		var out = make([]byte, 10)
		bytesRead, err := reader.Read(out)
		assert.Nil(t, err)
		assert.Equal(t, 10, bytesRead)
		assert.Equal(t, "abcdeflors", string(out))

		bytesRead, err = reader.Read(out)
		assert.Equal(t, 0, bytesRead)
		assert.Equal(t, io.EOF, err)
	}

	{
		readerAt, err := buffer.EntryReaderAt("k2")
		assert.Nil(t, err)
		var out = make([]byte, 7)
		bytesRead, err := readerAt.ReadAt(out, 3)
		assert.Nil(t, err)
		assert.Equal(t, 7, bytesRead)
		assert.Equal(t, "1024zyx", string(out))
	}

	//read entry for unknown key
	_, err = buffer.ReadEntry("k4")
	assert.Equal(t, rcb.ErrKeyNotFound, err)

	//duplicate add leaves the original block in place
	info, err = buffer.Add("k1", []byte("other"))
	assert.Equal(t, rcb.ErrDuplicateKey, err)
	assert.Equal(t, 35, info.UsedBytes)
	assert.Equal(t, "abcdeflorsxyz1024zyx131213123123213", string(buffer.Dump()))

	//delete of unknown key reports stats unchanged
	info, err = buffer.Delete("k9")
	assert.Equal(t, rcb.ErrKeyNotFound, err)
	assert.Equal(t, 35, info.UsedBytes)

	assert.Equal(t, 2, buffer.Count())
	assert.Equal(t, []string{"k1", "k2"}, buffer.Keys())
	assert.True(t, buffer.Has("k1"))
	assert.False(t, buffer.Has("k4"))
	assertInfoInvariant(t, buffer)
}

//Mirrors the classic two message delete/readd flow on an exactly full 18 byte buffer.
func TestDeleteAndReadd(t *testing.T) {
	buffer, err := rcb.New(18)
	assert.Nil(t, err)

	msg3 := []byte("Buf msg3\n")
	msg4 := []byte("Buf msg4\n")
	msg5 := []byte("Buf msg5\n")

	info, err := buffer.Add("m3", msg3)
	assert.Nil(t, err)
	assert.Equal(t, 9, info.UsedBytes)

	info, err = buffer.Add("m4", msg4)
	assert.Nil(t, err)
	assert.Equal(t, 18, info.UsedBytes)
	assert.Equal(t, "Buf msg3\nBuf msg4\n", string(buffer.Dump()))

	info, err = buffer.Delete("m3")
	assert.Nil(t, err)
	assert.Equal(t, 9, info.UsedBytes)
	assert.Equal(t, 9, info.FreeBytes)
	assert.Equal(t, 9, buffer.DeletePendingBytes())

	//delete of an already pending key is a no-op
	info, err = buffer.Delete("m3")
	assert.Equal(t, rcb.ErrKeyNotFound, err)
	assert.Equal(t, 9, buffer.DeletePendingBytes())

	//re-adding the pending key compacts the stale block away first
	info, err = buffer.Add("m3", msg3)
	assert.Nil(t, err)
	assert.Equal(t, 18, info.UsedBytes)
	assert.Equal(t, 0, buffer.DeletePendingBytes())
	if diff := cmp.Diff("Buf msg4\nBuf msg3\n", string(buffer.Dump())); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}

	info, err = buffer.Delete("m4")
	assert.Nil(t, err)
	assert.Equal(t, 9, info.UsedBytes)

	info, err = buffer.Add("m5", msg5)
	assert.Nil(t, err)
	assert.Equal(t, 18, info.UsedBytes)
	assert.Equal(t, "Buf msg3\nBuf msg5\n", string(buffer.Dump()))
	assertInfoInvariant(t, buffer)
}

func TestWraparoundDump(t *testing.T) {
	buffer, err := rcb.New(16)
	assert.Nil(t, err)

	_, err = buffer.Add("k1", []byte("aaaaaa"))
	assert.Nil(t, err)
	_, err = buffer.Add("k2", []byte("bbbbbb"))
	assert.Nil(t, err)
	_, err = buffer.Delete("k1")
	assert.Nil(t, err)

	//admission compacts k1 away, the new block crosses the physical boundary
	info, err := buffer.Add("k3", []byte("cccccccc"))
	assert.Nil(t, err)
	assert.Equal(t, 14, info.UsedBytes)

	assert.Equal(t, "bbbbbbcccccccc", string(buffer.Dump()))
	//dump with no intervening mutation yields identical bytes
	assert.Equal(t, "bbbbbbcccccccc", string(buffer.Dump()))

	//the wrapped block reads back whole
	data, err := buffer.ReadEntry("k3")
	assert.Nil(t, err)
	assert.Equal(t, "cccccccc", string(data))
	assertInfoInvariant(t, buffer)
}

func TestSizeExceedsCapacity(t *testing.T) {
	buffer, err := rcb.New(16)
	assert.Nil(t, err)

	//bigger than the whole buffer, rejected regardless of occupancy
	info, err := buffer.Add("big", make([]byte, 17))
	assert.Equal(t, rcb.ErrSizeExceedsCapacity, err)
	assert.Equal(t, 16, info.FreeBytes)

	_, err = buffer.Add("k1", make([]byte, 10))
	assert.Nil(t, err)

	//does not fit even after full reclamation
	info, err = buffer.Add("k2", make([]byte, 8))
	assert.Equal(t, rcb.ErrSizeExceedsCapacity, err)
	assert.Equal(t, 10, info.UsedBytes)

	//fits only after reclaiming the pending block
	_, err = buffer.Delete("k1")
	assert.Nil(t, err)
	info, err = buffer.Add("k2", make([]byte, 12))
	assert.Nil(t, err)
	assert.Equal(t, 12, info.UsedBytes)
	assert.Equal(t, 1, buffer.Count())
	assertInfoInvariant(t, buffer)
}

func TestNewInvalidCapacity(t *testing.T) {
	_, err := rcb.New(0)
	assert.NotNil(t, err)
	_, err = rcb.NewCompactableBuffer(&rcb.RingConfig{})
	assert.NotNil(t, err)
}

//Drives adds, deletes and dumps against a plain slice model, every dump forces a compaction so the
//survivors get rewritten offsets round after round.
func TestDumpMatchesModel(t *testing.T) {
	buffer, err := rcb.New(64)
	assert.Nil(t, err)

	type block struct {
		key  string
		data string
	}
	var model []block
	modelDump := func() string {
		var out = new(strings.Builder)
		for _, item := range model {
			out.WriteString(item.data)
		}
		return out.String()
	}
	modelRemove := func(key string) {
		for i, item := range model {
			if item.key == key {
				model = append(model[:i], model[i+1:]...)
				return
			}
		}
	}

	for i := 0; i < 100; i++ {
		key := "k" + strconv.Itoa(i)
		data := strings.Repeat(string(rune('a'+i%26)), 3+i%7)
		for {
			_, err = buffer.Add(key, []byte(data))
			if err != rcb.ErrSizeExceedsCapacity {
				break
			}
			//evict the oldest surviving block to make room
			oldest := model[0]
			_, err = buffer.Delete(oldest.key)
			assert.Nil(t, err)
			modelRemove(oldest.key)
		}
		assert.Nil(t, err)
		model = append(model, block{key: key, data: data})

		if i%3 == 0 && len(model) > 1 {
			victim := model[(i*7)%len(model)]
			_, err = buffer.Delete(victim.key)
			assert.Nil(t, err)
			modelRemove(victim.key)
		}

		assert.Equal(t, modelDump(), string(buffer.Dump()), "round "+strconv.Itoa(i))
		assertInfoInvariant(t, buffer)
	}
	assert.Equal(t, len(model), buffer.Count())
}
