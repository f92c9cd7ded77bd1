package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"intohear/internal/services"
)

var artifactMagics = [][]byte{
	[]byte("lmgg"), // ggml, little-endian 0x67676d6c
	[]byte("ggml"),
	[]byte("GGUF"),
}

// Verify checks that path is a readable ggml model file. Failures are
// ModelLoadError values carrying a hint to remove the corrupt file.
func Verify(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return loadError(path, "open model", err)
	}
	defer file.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(file, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return loadError(path, "read header", errors.New("model file is truncated"))
		}
		return loadError(path, "read header", err)
	}
	for _, magic := range artifactMagics {
		if bytes.Equal(header, magic) {
			return nil
		}
	}
	return loadError(path, "read header", fmt.Errorf("unrecognized model header %q", header))
}

func loadError(path, op string, err error) error {
	return services.Wrap(services.KindModelLoad, "transcription", op, path, err).
		WithHint(fmt.Sprintf("delete %s so it is downloaded again", path))
}
