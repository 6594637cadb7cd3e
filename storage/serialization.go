// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/poiesic/rentmatch/core"
)

// MarshalListing serializes a Listing to bytes.
func MarshalListing(listing *core.Listing) ([]byte, error) {
	data, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalListing deserializes a Listing from bytes.
func UnmarshalListing(data []byte) (*core.Listing, error) {
	var listing core.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &listing, nil
}

// MarshalEmbeddingRecord serializes an EmbeddingRecord to a compact binary form:
//
//	uvarint(len(model)) | model | uint64 fingerprint | uvarint(dim) | dim x float32
//
// All fixed-width fields are little endian.
func MarshalEmbeddingRecord(record *EmbeddingRecord) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(record.Model)+8+4*len(record.Vector))
	buf = binary.AppendUvarint(buf, uint64(len(record.Model)))
	buf = append(buf, record.Model...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(record.Fingerprint))
	buf = binary.AppendUvarint(buf, uint64(len(record.Vector)))
	for _, v := range record.Vector {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// UnmarshalEmbeddingRecord deserializes an EmbeddingRecord from bytes.
func UnmarshalEmbeddingRecord(data []byte) (*EmbeddingRecord, error) {
	modelLen, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, ErrTruncatedData
	}
	data = data[n:]
	if uint64(len(data)) < modelLen+8 {
		return nil, ErrTruncatedData
	}
	record := &EmbeddingRecord{Model: string(data[:modelLen])}
	data = data[modelLen:]
	record.Fingerprint = core.Fingerprint(binary.LittleEndian.Uint64(data))
	data = data[8:]

	dim, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, ErrTruncatedData
	}
	data = data[n:]
	if uint64(len(data)) != 4*dim {
		return nil, ErrTruncatedData
	}
	record.Vector = make([]float32, dim)
	for i := range record.Vector {
		record.Vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return record, nil
}
