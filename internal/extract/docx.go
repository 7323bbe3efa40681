package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
		Tables     []docxTable     `xml:"tbl"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

type docxTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []docxParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p docxParagraph) text() string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

// extractDOCX reads word/document.xml. Each non-empty paragraph becomes its
// own paragraph in the output; table rows follow the body text.
func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("word/document.xml not found")
}

func parseDocumentXML(content []byte) (string, error) {
	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	var parts []string
	for _, para := range doc.Body.Paragraphs {
		if text := para.text(); text != "" {
			parts = append(parts, text)
		}
	}

	for _, table := range doc.Body.Tables {
		var rows []string
		for _, row := range table.Rows {
			var cells []string
			for _, cell := range row.Cells {
				for _, para := range cell.Paragraphs {
					if text := para.text(); text != "" {
						cells = append(cells, text)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
		}
		if len(rows) > 0 {
			parts = append(parts, strings.Join(rows, "\n"))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
