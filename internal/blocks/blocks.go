// Package blocks implements the ordered content-block document model:
// pure transformations over block lists, normalization of
// server-supplied documents, and reconciliation of local edits with
// pending media uploads into a single transport payload.
package blocks

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfoliocore/internal/models"
)

// Append returns a new block list with a freshly created block of the
// given type at the end. Media blocks start with an empty MediaRef
// until a file is attached. The input list is never mutated.
func Append(list []models.ContentBlock, t models.BlockType) []models.ContentBlock {
	b := models.ContentBlock{ID: uuid.NewString(), Type: t}
	if t == models.BlockMedia {
		b.Media = &models.MediaRef{}
	}

	out := make([]models.ContentBlock, 0, len(list)+1)
	out = append(out, list...)
	return append(out, b)
}

// SetText returns a new block list with the text of the identified
// block replaced. Media and deleted blocks are left untouched.
func SetText(list []models.ContentBlock, id, text string) []models.ContentBlock {
	out := clone(list)
	for i := range out {
		if out[i].ID != id || out[i].Deleted {
			continue
		}
		if out[i].Type == models.BlockHeading || out[i].Type == models.BlockParagraph {
			out[i].Text = text
		}
	}
	return out
}

// AttachMedia returns a new block list with the identified media block
// pointing at pendingKey. Any previously persisted URL is cleared: a
// live media block carries exactly one of url or pendingKey.
func AttachMedia(list []models.ContentBlock, id, pendingKey string) []models.ContentBlock {
	out := clone(list)
	for i := range out {
		if out[i].ID != id || out[i].Deleted || out[i].Type != models.BlockMedia {
			continue
		}
		out[i].Media = &models.MediaRef{PendingKey: pendingKey}
	}
	return out
}

// MarkDeleted returns a new block list with the identified block
// soft-deleted. The block keeps its position so ordering survives an
// undo. Idempotent.
func MarkDeleted(list []models.ContentBlock, id string) []models.ContentBlock {
	out := clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].Deleted = true
		}
	}
	return out
}

// Live returns the non-deleted blocks of list, preserving order.
func Live(list []models.ContentBlock) []models.ContentBlock {
	out := make([]models.ContentBlock, 0, len(list))
	for _, b := range list {
		if !b.Deleted {
			out = append(out, b)
		}
	}
	return out
}

// PreviewText returns the text of the first non-empty, non-deleted
// heading or paragraph block, or "" if there is none.
func PreviewText(list []models.ContentBlock) string {
	for _, b := range list {
		if b.Deleted {
			continue
		}
		if b.Type != models.BlockHeading && b.Type != models.BlockParagraph {
			continue
		}
		if strings.TrimSpace(b.Text) != "" {
			return b.Text
		}
	}
	return ""
}

// NewPendingKey generates a key correlating a media block to a locally
// selected file.
func NewPendingKey() string {
	return "media_" + uuid.NewString()
}

// Normalize extracts the block list from a server-supplied document.
// It tolerates the legacy "contentBlocks" field alias and absent or
// malformed block arrays, always returning a well-formed list.
// Malformed input degrades to an empty list; Normalize never errors.
func Normalize(raw []byte) []models.ContentBlock {
	var doc struct {
		Blocks []json.RawMessage `json:"content_blocks"`
		Alias  []json.RawMessage `json:"contentBlocks"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []models.ContentBlock{}
	}

	rows := doc.Blocks
	if rows == nil {
		rows = doc.Alias
	}

	out := make([]models.ContentBlock, 0, len(rows))
	for _, row := range rows {
		var b models.ContentBlock
		if err := json.Unmarshal(row, &b); err != nil {
			continue
		}
		if !b.Type.Valid() {
			continue
		}
		if b.ID == "" {
			// Legacy rows were keyed by array index; give them a
			// stable identity on ingestion.
			b.ID = uuid.NewString()
		}
		out = append(out, b)
	}
	return out
}

// ParseDocument decodes a server-supplied blog document, running the
// block array through Normalize. The server is authoritative for every
// field it returns.
func ParseDocument(raw []byte) (models.BlogDocument, error) {
	var w struct {
		ID        string            `json:"id"`
		Title     string            `json:"title"`
		Status    models.BlogStatus `json:"status"`
		Slug      string            `json:"slug"`
		AuthorRef string            `json:"author_ref"`
		CreatedAt time.Time         `json:"created_at"`
		UpdatedAt time.Time         `json:"updated_at"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.BlogDocument{}, err
	}

	return models.BlogDocument{
		ID:        w.ID,
		Title:     w.Title,
		Status:    w.Status,
		Slug:      w.Slug,
		AuthorRef: w.AuthorRef,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Blocks:    Normalize(raw),
	}, nil
}

func clone(list []models.ContentBlock) []models.ContentBlock {
	out := make([]models.ContentBlock, len(list))
	copy(out, list)
	for i := range out {
		if out[i].Media != nil {
			m := *out[i].Media
			out[i].Media = &m
		}
	}
	return out
}
