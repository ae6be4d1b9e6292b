package ingest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"docchat/internal/apperr"
	"docchat/internal/contextutil"
)

// supportedExtensions lists what can be uploaded. Only a subset has a text
// loader; the rest is stored for the session but skipped at load time.
var supportedExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".txt": true, ".pptx": true,
	".md": true, ".csv": true, ".xlsx": true, ".xls": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SavedFile pairs a stored upload with the name the client sent it under.
type SavedFile struct {
	OriginalName string
	Path         string
}

// SaveUploadedFiles writes multipart uploads into dir under sanitized unique
// names and returns the saved files. Files with unsupported extensions are
// skipped with a warning rather than failing the whole upload.
func SaveUploadedFiles(ctx context.Context, dir string, files []*multipart.FileHeader) ([]SavedFile, error) {
	const op = "ingest.SaveUploadedFiles"
	logger := contextutil.LoggerFromContext(ctx)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	var saved []SavedFile
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !supportedExtensions[ext] {
			logger.Warn("unsupported file skipped", "filename", fh.Filename)
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
		safeName := strings.ToLower(unsafeNameChars.ReplaceAllString(stem, "_"))
		outName := fmt.Sprintf("%s_%s%s", safeName, uuid.New().String()[:6], ext)
		outPath := filepath.Join(dir, outName)

		if err := copyUpload(fh, outPath); err != nil {
			return nil, apperr.E(op, apperr.ErrIO, fmt.Errorf("saving %s: %w", fh.Filename, err))
		}
		saved = append(saved, SavedFile{OriginalName: fh.Filename, Path: outPath})
		logger.Info("file saved for ingestion", "uploaded", fh.Filename, "saved_as", outPath)
	}
	return saved, nil
}

func copyUpload(fh *multipart.FileHeader, outPath string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}
