package blocks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliocore/internal/models"
)

func TestAppendAssignsUniqueIDs(t *testing.T) {
	var list []models.ContentBlock
	list = Append(list, models.BlockHeading)
	list = Append(list, models.BlockParagraph)
	list = Append(list, models.BlockMedia)

	require.Len(t, list, 3)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.NotEqual(t, list[1].ID, list[2].ID)

	// Media blocks start with an empty ref: neither url nor pendingKey
	// until a file is attached.
	require.NotNil(t, list[2].Media)
	assert.Empty(t, list[2].Media.URL)
	assert.Empty(t, list[2].Media.PendingKey)
	assert.Nil(t, list[0].Media)
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	orig := Append(nil, models.BlockHeading)
	snapshot := orig[0]

	_ = Append(orig, models.BlockParagraph)
	_ = SetText(orig, orig[0].ID, "changed")
	_ = MarkDeleted(orig, orig[0].ID)

	assert.Equal(t, snapshot, orig[0], "input list must never be mutated")
}

func TestSetText(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = Append(list, models.BlockMedia)

	list = SetText(list, list[0].ID, "Hello")
	assert.Equal(t, "Hello", list[0].Text)

	// Media blocks have no text; the edit is a no-op.
	before := list[1]
	list = SetText(list, list[1].ID, "nope")
	assert.Equal(t, before, list[1])
}

func TestAttachMediaClearsURL(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list[0].Media = &models.MediaRef{URL: "https://cdn.test/old.png", FileType: "png"}

	list = AttachMedia(list, list[0].ID, "media_k1")

	require.NotNil(t, list[0].Media)
	assert.Equal(t, "media_k1", list[0].Media.PendingKey)
	assert.Empty(t, list[0].Media.URL, "url and pendingKey must never coexist")
}

func TestAttachMediaIgnoresTextBlocks(t *testing.T) {
	list := Append(nil, models.BlockParagraph)
	before := list[0]
	list = AttachMedia(list, list[0].ID, "media_k1")
	assert.Equal(t, before, list[0])
}

func TestMarkDeletedIdempotent(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = Append(list, models.BlockParagraph)

	once := MarkDeleted(list, list[0].ID)
	twice := MarkDeleted(once, list[0].ID)

	assert.Equal(t, once, twice)
	assert.True(t, once[0].Deleted)
	// Position preserved for undo.
	assert.Equal(t, list[0].ID, once[0].ID)
	assert.Len(t, once, 2)
}

func TestLiveExcludesDeleted(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = Append(list, models.BlockParagraph)
	list = MarkDeleted(list, list[0].ID)

	live := Live(list)
	require.Len(t, live, 1)
	assert.Equal(t, models.BlockParagraph, live[0].Type)
}

func TestPreviewText(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = Append(list, models.BlockParagraph)
	list = SetText(list, list[1].ID, "First real text")

	assert.Equal(t, "First real text", PreviewText(list))

	list = MarkDeleted(list, list[1].ID)
	assert.Equal(t, "", PreviewText(list))
}

func TestNormalizeAliasKey(t *testing.T) {
	raw := []byte(`{"id":"b1","contentBlocks":[{"id":"x","type":"heading","text":"Hi"}]}`)

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, models.BlockHeading, got[0].Type)
	assert.Equal(t, "Hi", got[0].Text)
}

func TestNormalizePrefersCanonicalKey(t *testing.T) {
	raw := []byte(`{
		"content_blocks":[{"id":"a","type":"paragraph","text":"canonical"}],
		"contentBlocks":[{"id":"b","type":"paragraph","text":"legacy"}]
	}`)

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestNormalizeDegradesToEmptyList(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":         `not json at all`,
		"missing array":    `{"id":"b1","title":"no blocks"}`,
		"array is string":  `{"content_blocks":"oops"}`,
		"null array":       `{"content_blocks":null}`,
		"malformed blocks": `{"content_blocks":[42,"x"]}`,
	} {
		got := Normalize([]byte(raw))
		assert.NotNil(t, got, name)
		assert.Empty(t, got, name)
	}
}

func TestNormalizeSkipsUnknownTypesAndBackfillsIDs(t *testing.T) {
	raw := []byte(`{"content_blocks":[
		{"type":"heading","text":"no id"},
		{"id":"k","type":"carousel"},
		{"id":"m","type":"media","media":{"url":"https://cdn.test/a.png","fileType":"png"}}
	]}`)

	got := Normalize(raw)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID, "legacy rows get a stable identity on ingestion")
	assert.Equal(t, "m", got[1].ID)
	require.NotNil(t, got[1].Media)
	assert.Equal(t, "https://cdn.test/a.png", got[1].Media.URL)
}

// TestRoundTrip serializes a well-formed list with no pending media
// and normalizes it back: the result must equal the original.
func TestRoundTrip(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = SetText(list, list[0].ID, "Title")
	list = Append(list, models.BlockParagraph)
	list = SetText(list, list[1].ID, "Body text")
	list = Append(list, models.BlockMedia)
	list[2].Media = &models.MediaRef{URL: "https://cdn.test/img.png", FileType: "png"}

	doc, err := json.Marshal(map[string]any{"content_blocks": list})
	require.NoError(t, err)

	got := Normalize(doc)
	assert.Equal(t, list, got)
}

func TestParseDocument(t *testing.T) {
	raw := []byte(`{
		"id":"blog-1","title":"Hello","status":"published","slug":"hello",
		"author_ref":"u-9",
		"content_blocks":[{"id":"h","type":"heading","text":"Hello"}]
	}`)

	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "blog-1", doc.ID)
	assert.Equal(t, models.StatusPublished, doc.Status)
	assert.Equal(t, "hello", doc.Slug)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Hello", doc.Blocks[0].Text)
}

func TestParseDocumentMalformedBlocksDegrade(t *testing.T) {
	raw := []byte(`{"id":"blog-2","title":"Broken","status":"draft","content_blocks":"oops"}`)

	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "blog-2", doc.ID)
	assert.Empty(t, doc.Blocks)
}
