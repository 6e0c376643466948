// Package models defines the core data structures for credentials,
// content blocks, blog documents, and admin users.
package models

import "time"

// Role identifies the permission level attached to a credential.
type Role string

const (
	// RoleWriter may author draft documents.
	RoleWriter Role = "writer"
	// RoleEditor may author and publish documents.
	RoleEditor Role = "editor"
	// RoleAdmin may additionally manage users.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleWriter, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Credential holds the active session tokens and role.
// Token contents are opaque to the client and never inspected.
type Credential struct {
	// AccessToken is presented as a bearer token on authenticated requests.
	AccessToken string `json:"access_token"`
	// RefreshToken is exchanged for a new access token on expiry.
	RefreshToken string `json:"refresh_token"`
	// Role is the permission level granted at login.
	Role Role `json:"role"`
}

// BlockType identifies the kind of a content block.
type BlockType string

const (
	// BlockHeading is a single-line heading block.
	BlockHeading BlockType = "heading"
	// BlockParagraph is a free-text paragraph block.
	BlockParagraph BlockType = "paragraph"
	// BlockMedia is an image or document attachment block.
	BlockMedia BlockType = "media"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockHeading, BlockParagraph, BlockMedia:
		return true
	}
	return false
}

// MediaRef points at the binary behind a media block. A live media
// block carries exactly one of URL (already persisted by the server)
// or PendingKey (awaiting upload), never both.
type MediaRef struct {
	// URL is the server-assigned location of the uploaded binary.
	URL string `json:"url,omitempty"`
	// FileType is a short type hint such as "pdf" or "png".
	FileType string `json:"fileType,omitempty"`
	// PendingKey correlates the block to a not-yet-uploaded file
	// held in a PendingFileMap.
	PendingKey string `json:"pendingKey,omitempty"`
}

// ContentBlock is one unit of structured document content. Ordering
// within a document is the slice index at serialization time.
type ContentBlock struct {
	// ID is assigned client-side at creation and never reused.
	ID string `json:"id"`
	// Type is the block kind.
	Type BlockType `json:"type"`
	// Text holds the content of heading and paragraph blocks.
	Text string `json:"text,omitempty"`
	// Media is set only on media blocks.
	Media *MediaRef `json:"media,omitempty"`
	// Deleted marks the block soft-deleted. Deleted blocks keep their
	// position but are excluded from rendering and from payloads.
	Deleted bool `json:"deleted,omitempty"`
}

// BlogStatus is the publication state of a document.
type BlogStatus string

const (
	// StatusDraft documents are visible to admins only.
	StatusDraft BlogStatus = "draft"
	// StatusPublished documents appear on the public read endpoints.
	StatusPublished BlogStatus = "published"
)

// BlogDocument is one blog entry. The server owns ID, Slug, and the
// timestamps; the client only ever proposes Title, Status, and Blocks.
type BlogDocument struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    BlogStatus     `json:"status"`
	Slug      string         `json:"slug,omitempty"`
	Blocks    []ContentBlock `json:"content_blocks"`
	AuthorRef string         `json:"author_ref,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// PendingFile is a locally selected binary waiting for upload.
type PendingFile struct {
	// Name is the original file name, sent as the multipart filename.
	Name string
	// ContentType is the MIME type, if known.
	ContentType string
	// Data is the file contents. Kept in memory so a request replay
	// after token refresh can re-encode the body.
	Data []byte
}

// PendingFileMap maps a block's pendingKey to the file selected for
// it. Owned by the editing session, never persisted, and cleared by
// the caller on save success or cancel.
type PendingFileMap map[string]PendingFile

// User is an account on the admin user-management surface.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
