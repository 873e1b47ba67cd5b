package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/talentsift/talentsift/internal/domain"
)

// maxArchiveFileSize caps a single file inside an archive (zip bombs).
const maxArchiveFileSize = 64 << 20

// ExpandUploads flattens uploads into individual PDF files: a .zip upload
// is unpacked in memory and each contained .pdf becomes one upload, any
// other file passes through unchanged. Directory entries and archive junk
// (hidden files, __MACOSX) are skipped.
func ExpandUploads(uploads []domain.Upload) ([]domain.Upload, error) {
	out := make([]domain.Upload, 0, len(uploads))
	for _, u := range uploads {
		if !strings.EqualFold(path.Ext(u.Filename), ".zip") {
			out = append(out, u)
			continue
		}

		expanded, err := expandZip(u)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func expandZip(u domain.Upload) ([]domain.Upload, error) {
	zr, err := zip.NewReader(bytes.NewReader(u.Data), int64(len(u.Data)))
	if err != nil {
		return nil, domain.NewExtractionError(u.Filename, fmt.Errorf("open archive: %w", err))
	}

	var out []domain.Upload
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipArchiveEntry(f.Name) {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".pdf") {
			continue
		}

		data, err := readArchiveFile(f)
		if err != nil {
			return nil, domain.NewExtractionError(u.Filename, fmt.Errorf("read %s: %w", f.Name, err))
		}
		out = append(out, domain.Upload{Filename: path.Base(f.Name), Data: data})
	}
	return out, nil
}

func readArchiveFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxArchiveFileSize))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func skipArchiveEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}
