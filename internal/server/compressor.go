package server

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
)

// zstdName is the wire compressor name clients opt into via
// grpc.UseCompressor(zstdName) or the "grpc-encoding" metadata key.
const zstdName = "zstd"

// zstdCompressor implements google.golang.org/grpc/encoding.Compressor.
// Encoders are pooled: zstd's are expensive enough to allocate that
// allocating them per-RPC would erase the win of compressing tensor-heavy
// payloads in the first place. Decoders are taken from a pool but never put
// back into it, so each Decompress call constructs a new decoder.
type zstdCompressor struct {
	encoders sync.Pool
	decoders sync.Pool
}

func registerZstdCompressor() {
	encoding.RegisterCompressor(newZstdCompressor())
}

func newZstdCompressor() *zstdCompressor {
	return &zstdCompressor{}
}

func (z *zstdCompressor) Name() string { return zstdName }

type pooledWriteCloser struct {
	*zstd.Encoder
	pool *sync.Pool
}

func (w *pooledWriteCloser) Close() error {
	err := w.Encoder.Close()
	w.pool.Put(w.Encoder)
	return err
}

func (z *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if enc, ok := z.encoders.Get().(*zstd.Encoder); ok {
		enc.Reset(w)
		return &pooledWriteCloser{Encoder: enc, pool: &z.encoders}, nil
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &pooledWriteCloser{Encoder: enc, pool: &z.encoders}, nil
}

type pooledReadCloser struct {
	*zstd.Decoder
	pool *sync.Pool
}

func (r *pooledReadCloser) Read(p []byte) (int, error) { return r.Decoder.Read(p) }

func (z *zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	if dec, ok := z.decoders.Get().(*zstd.Decoder); ok {
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return &pooledReadCloser{Decoder: dec, pool: &z.decoders}, nil
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &pooledReadCloser{Decoder: dec, pool: &z.decoders}, nil
}
