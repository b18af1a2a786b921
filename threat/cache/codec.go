package cache

import (
	"encoding/json"
	"fmt"

	"threatintel/core"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes cache entries for a Backend
type Codec interface {
	Name() string
	Encode(entry core.CacheEntry) ([]byte, error)
	Decode(data []byte) (core.CacheEntry, error)
}

// JSONCodec stores entries as {"timestamp": ..., "data": ...}
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(entry core.CacheEntry) ([]byte, error) {
	return json.Marshal(entry)
}

func (JSONCodec) Decode(data []byte) (core.CacheEntry, error) {
	var entry core.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return core.CacheEntry{}, fmt.Errorf("invalid json cache entry: %w", err)
	}
	return entry, nil
}

// MsgpackCodec is the compact encoding used by the binary backends
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(entry core.CacheEntry) ([]byte, error) {
	return msgpack.Marshal(&entry)
}

func (MsgpackCodec) Decode(data []byte) (core.CacheEntry, error) {
	var entry core.CacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return core.CacheEntry{}, fmt.Errorf("invalid msgpack cache entry: %w", err)
	}
	return entry, nil
}

// CodecFor returns the codec a backend stores its records with
func CodecFor(backend string) Codec {
	if backend == BackendFile {
		return JSONCodec{}
	}
	return MsgpackCodec{}
}
