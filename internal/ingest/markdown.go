package ingest

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"docchat/internal/vectorstore"
)

// loadMarkdown parses a .md file and extracts its plain text, dropping the
// markup so headings and emphasis markers do not pollute the embeddings.
func loadMarkdown(path, source string) ([]vectorstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	extracted, err := markdownText(raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extracted) == "" {
		return nil, nil
	}

	return []vectorstore.Document{{
		Text: extracted,
		Metadata: map[string]any{
			"source":    source,
			"file_path": path,
		},
	}}, nil
}

func markdownText(source []byte) (string, error) {
	parser := goldmark.New().Parser()
	root := parser.Parse(text.NewReader(source))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.AutoLink:
			sb.Write(node.URL(source))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
