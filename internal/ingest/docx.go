package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"docchat/internal/vectorstore"
)

// loadDocx extracts the plain text of a .docx file. The format is a zip
// archive whose word/document.xml holds runs of text in w:t elements, with
// w:p marking paragraphs.
func loadDocx(path, source string) ([]vectorstore.Document, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	var docXML *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docXML = f
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("no word/document.xml in %s", path)
	}

	r, err := docXML.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text, err := docxText(r)
	if err != nil {
		return nil, err
	}
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

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
