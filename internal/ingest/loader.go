package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docchat/internal/apperr"
	"docchat/internal/contextutil"
	"docchat/internal/vectorstore"
)

// LoadDocuments reads each saved file with a loader picked by extension and
// returns the extracted documents. PDFs produce one document per page;
// everything else produces a single document. Extensions without a loader
// are skipped with a warning. Metadata carries the client-supplied original
// name as "source" so identity survives the randomized stored names.
func LoadDocuments(ctx context.Context, files []SavedFile) ([]vectorstore.Document, error) {
	const op = "ingest.LoadDocuments"
	logger := contextutil.LoggerFromContext(ctx)

	var docs []vectorstore.Document
	for _, file := range files {
		var (
			loaded []vectorstore.Document
			err    error
		)
		switch strings.ToLower(filepath.Ext(file.Path)) {
		case ".pdf":
			loaded, err = loadPDF(file.Path, file.OriginalName)
		case ".docx":
			loaded, err = loadDocx(file.Path, file.OriginalName)
		case ".txt":
			loaded, err = loadText(file.Path, file.OriginalName)
		case ".md":
			loaded, err = loadMarkdown(file.Path, file.OriginalName)
		default:
			logger.Warn("no loader for extension, file skipped", "path", file.Path)
			continue
		}
		if err != nil {
			return nil, apperr.E(op, apperr.ErrIO, fmt.Errorf("loading %s: %w", file.Path, err))
		}
		docs = append(docs, loaded...)
	}

	logger.Info("documents loaded", "files", len(files), "documents", len(docs))
	return docs, nil
}

func loadPDF(path, source string) ([]vectorstore.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []vectorstore.Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, vectorstore.Document{
			Text: text,
			Metadata: map[string]any{
				"source":    source,
				"file_path": path,
				"page":      pageNum,
			},
		})
	}
	return docs, nil
}

func loadText(path, source string) ([]vectorstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []vectorstore.Document{{
		Text: text,
		Metadata: map[string]any{
			"source":    source,
			"file_path": path,
		},
	}}, nil
}
