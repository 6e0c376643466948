package blocks

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"portfoliocore/internal/models"
)

// Payload is the reconciled transport form of a document write:
// the filtered block list with pendingKey references intact, plus the
// binary parts backing those keys. A Payload is built once and can be
// encoded any number of times, so a request replayed after token
// refresh gets a fresh body.
type Payload struct {
	Title  string
	Status models.BlogStatus
	// Blocks excludes deleted blocks entirely; order is the document
	// order.
	Blocks []models.ContentBlock
	// Parts holds one binary part per pendingKey surviving in Blocks,
	// in block order.
	Parts []Part
}

// Part is one named binary attachment of a Payload.
type Part struct {
	// Key is the pendingKey the part is filed under.
	Key string
	// File is the binary pulled from the PendingFileMap.
	File models.PendingFile
}

// BuildPayload reconciles a block list with its pending files into a
// Payload. Pure function of its inputs: no network, no storage.
//
// Deleted blocks are dropped. A media block whose pendingKey has no
// entry in files loses the dangling reference rather than producing an
// invalid payload. No emitted block ever carries both url and
// pendingKey.
func BuildPayload(title string, status models.BlogStatus, list []models.ContentBlock, files models.PendingFileMap) *Payload {
	out := make([]models.ContentBlock, 0, len(list))
	var parts []Part

	for _, b := range list {
		if b.Deleted {
			continue
		}
		if b.Media != nil {
			m := *b.Media
			b.Media = &m
		}

		if b.Type == models.BlockMedia && b.Media != nil && b.Media.PendingKey != "" {
			f, ok := files[b.Media.PendingKey]
			if !ok {
				b.Media.PendingKey = ""
				if b.Media.URL == "" {
					b.Media = nil
				}
			} else {
				// Exactly one of url/pendingKey on the wire.
				b.Media.URL = ""
				if b.Media.FileType == "" {
					b.Media.FileType = fileType(f)
				}
				parts = append(parts, Part{Key: b.Media.PendingKey, File: f})
			}
		}

		out = append(out, b)
	}

	return &Payload{Title: title, Status: status, Blocks: out, Parts: parts}
}

// Encode renders the payload body and reports its content type.
// With binary parts present the body is multipart/form-data with a
// "title" field, a "status" field, a "content_blocks" JSON field, and
// one file part per pending key; without parts it is a plain JSON
// object. Callers never pick the encoding themselves.
func (p *Payload) Encode() (io.Reader, string, error) {
	if len(p.Parts) == 0 {
		body, err := json.Marshal(map[string]any{
			"title":          p.Title,
			"status":         p.Status,
			"content_blocks": p.Blocks,
		})
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(body), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", p.Title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("status", string(p.Status)); err != nil {
		return nil, "", err
	}
	blocksJSON, err := json.Marshal(p.Blocks)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("content_blocks", string(blocksJSON)); err != nil {
		return nil, "", err
	}

	for _, part := range p.Parts {
		name := part.File.Name
		if name == "" {
			name = part.Key
		}
		fw, err := w.CreateFormFile(part.Key, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(part.File.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func fileType(f models.PendingFile) string {
	if ext := strings.TrimPrefix(filepath.Ext(f.Name), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if i := strings.IndexByte(f.ContentType, '/'); i >= 0 {
		return f.ContentType[i+1:]
	}
	return ""
}
