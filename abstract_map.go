package rcb

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/viant/toolbox"
)

//AbstractStringMap represents a string keyed map of encoded values stored in a compactable ring buffer.
//Put of an existing key flags the previous block for deletion and re-adds the key, so replaced values
//are reclaimed by the next compaction.
type AbstractStringMap struct {
	Buffer         *CompactableBuffer
	Mutex          *sync.Mutex
	EncoderFactory toolbox.EncoderFactory
	DecoderFactory toolbox.DecoderFactory
}

//Keys returns a map keys in insertion order.
func (m *AbstractStringMap) Keys() []string {
	return m.Buffer.Keys()
}

//Size returns a map size.
func (m *AbstractStringMap) Size() int {
	return m.Buffer.Count()
}

//Encode encodes value into bytes, or returns error
func (m *AbstractStringMap) Encode(value interface{}) ([]byte, error) {
	var data = new(bytes.Buffer)
	err := m.EncoderFactory.Create(data).Encode(value)
	if err != nil {
		return nil, fmt.Errorf("Failed to create encoder %v", err)
	}
	return data.Bytes(), nil
}

//Decode decodes passed in reader into value pointer, or returns error.
func (m *AbstractStringMap) Decode(reader io.Reader, valuePointer interface{}) error {
	return m.DecoderFactory.Create(reader).Decode(valuePointer)
}

//Put stores encoded value under the passed in key, replacing a previously stored value.
func (m *AbstractStringMap) Put(key string, value interface{}) error {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	data, err := m.Encode(value)
	if err != nil {
		return fmt.Errorf("Failed to put %v %v", key, err)
	}
	_, err = m.Buffer.Add(key, data)
	if err == ErrDuplicateKey {
		if _, err = m.Buffer.Delete(key); err != nil {
			return fmt.Errorf("Failed to put %v %v", key, err)
		}
		_, err = m.Buffer.Add(key, data)
	}
	if err != nil {
		return fmt.Errorf("Failed to put %v %v", key, err)
	}
	return nil
}

//Get decodes a value stored under the passed in key into value pointer. It returns false if the key
//is not present.
func (m *AbstractStringMap) Get(key string, valuePointer interface{}) (bool, error) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	if !m.Buffer.Has(key) {
		return false, nil
	}
	reader, err := m.Buffer.EntryReader(key)
	if err != nil {
		return false, fmt.Errorf("Failed to get %v - unable get reader %v", key, err)
	}
	err = m.Decode(reader, valuePointer)
	if err != nil {
		return false, fmt.Errorf("Failed to get %v - unable decode %v", key, err)
	}
	return true, nil
}

//Remove removes a value stored under the passed in key.
func (m *AbstractStringMap) Remove(key string) error {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	if _, err := m.Buffer.Delete(key); err != nil {
		return fmt.Errorf("Failed to remove key: %v, %v", key, err)
	}
	return nil
}

//NewAbstractStringMap create a new *AbstractStringMap. It takes ring config, data encoder and decoder factories.
func NewAbstractStringMap(config *RingConfig, encoderFactory toolbox.EncoderFactory, decoderFactory toolbox.DecoderFactory) (*AbstractStringMap, error) {
	buffer, err := NewCompactableBuffer(config)
	if err != nil {
		return nil, fmt.Errorf("Failed to create string map - unable to create compactable buffer %v", err)
	}
	return &AbstractStringMap{
		Buffer:         buffer,
		Mutex:          &sync.Mutex{},
		EncoderFactory: encoderFactory,
		DecoderFactory: decoderFactory,
	}, nil
}
