package archive

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

func gzipBytes(content []byte, level int) ([]byte, error) {
	if level == 0 {
		level = gzip.BestCompression
	}
	buf := &bytes.Buffer{}
	w, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(content); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(content []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
