package pack

import (
	"archive/zip"
	"fmt"
	"io"
)

// ArchiveFile is one named member of a zip bundle.
type ArchiveFile struct {
	Name string
	Data []byte
}

// WriteZip bundles files into a zip archive. Icon export in "multiple"
// mode is the only pipeline path producing an archive instead of a single
// artifact.
func WriteZip(w io.Writer, files []ArchiveFile) error {
	if len(files) == 0 {
		return fmt.Errorf("pack: no archive members")
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.Create(f.Name)
		if err != nil {
			return fmt.Errorf("pack: create archive member %s: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("pack: write archive member %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("pack: finalize archive: %w", err)
	}
	return nil
}
