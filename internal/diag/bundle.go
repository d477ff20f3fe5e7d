// Package diag writes gzipped diagnostic bundles for support requests.
package diag

import (
	"archive/tar"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Entry is one file inside a bundle.
type Entry struct {
	Name string
	Data []byte
}

// Write streams a tar.gz bundle of the given entries.
func Write(w io.Writer, entries []Entry) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)
	now := time.Now()
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    0o644,
			Size:    int64(len(e.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("bundle %s: %w", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			return fmt.Errorf("bundle %s: %w", e.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}
