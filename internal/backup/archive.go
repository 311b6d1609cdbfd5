package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// compressFile writes a zstd copy of src to dst and returns its size.
func compressFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = out.Close() }()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, fmt.Errorf("create encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return 0, fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("flush encoder: %w", err)
	}

	info, err := out.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), out.Sync()
}

// extractTo decompresses r into path through a temporary file, so a
// failed download never leaves a truncated database behind.
func extractTo(r io.Reader, path string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	defer dec.Close()

	tmp := path + ".restore"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create database file: %w", err)
	}
	if _, err := io.Copy(out, dec); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("decompress: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close database file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move database into place: %w", err)
	}
	return nil
}
