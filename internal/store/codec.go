package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/sanspareilsmyn/historylens/internal/series"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec turns cache entries into stored payloads and back.
type Codec interface {
	Encode(entry *series.Entry) ([]byte, error)
	Decode(data []byte) (*series.Entry, error)
}

// JSONCodec stores entries as plain JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(entry *series.Entry) ([]byte, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return b, nil
}

func (JSONCodec) Decode(data []byte) (*series.Entry, error) {
	var entry series.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return &entry, nil
}

// ZstdCodec compresses the JSON form with zstd. Safe for concurrent use.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstdCodec() (*ZstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &ZstdCodec{enc: enc, dec: dec}, nil
}

// Encode compresses the entry.
func (z *ZstdCodec) Encode(entry *series.Entry) ([]byte, error) {
	raw, err := JSONCodec{}.Encode(entry)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Decode decompresses a payload produced by Encode.
func (z *ZstdCodec) Decode(data []byte) (*series.Entry, error) {
	raw, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return JSONCodec{}.Decode(raw)
}

// Close releases encoder and decoder resources.
func (z *ZstdCodec) Close() {
	z.enc.Close()
	z.dec.Close()
}
