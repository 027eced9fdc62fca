package streamio

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// zlibReaderPool recycles klauspost/compress zlib readers across loose
// object and packed delta/entry decompression; Git inflates a great many
// small streams per operation and the decompressor's internal window is
// worth reusing.
var zlibReaderPool = sync.Pool{}

// GetZlibReader returns a zlib reader over r, reusing a pooled decompressor
// when one is available. The caller must call PutZlibReader when done; it
// is not safe to use the reader afterward.
func GetZlibReader(r io.Reader) (io.ReadCloser, error) {
	if v := zlibReaderPool.Get(); v != nil {
		zr := v.(zlib.Resetter)
		if err := zr.Reset(r, nil); err != nil {
			return nil, err
		}
		return zr.(io.ReadCloser), nil
	}
	return zlib.NewReader(r)
}

// PutZlibReader returns zr to the pool. Closing zr before returning it is
// the caller's responsibility if it must observe Close's error.
func PutZlibReader(zr io.ReadCloser) {
	_ = zr.Close()
	zlibReaderPool.Put(zr)
}

