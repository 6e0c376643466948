package blocks

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliocore/internal/models"
)

// decodeMultipart reads an encoded payload back into its fields and
// file parts for assertions.
func decodeMultipart(t *testing.T, body io.Reader, contentType string) (fields map[string]string, parts map[string][]byte) {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	fields = map[string]string{}
	parts = map[string][]byte{}
	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FileName() == "" {
			fields[part.FormName()] = string(data)
		} else {
			parts[part.FormName()] = data
		}
	}
	return fields, parts
}

// TestHeadingOnlyPayload: a heading block with text and an empty file
// map serializes to a JSON body with one heading block and no media
// parts.
func TestHeadingOnlyPayload(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = SetText(list, list[0].ID, "Hello")

	p := BuildPayload("Post", models.StatusDraft, list, models.PendingFileMap{})
	require.Empty(t, p.Parts)

	body, contentType, err := p.Encode()
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var wire struct {
		Title  string                `json:"title"`
		Status models.BlogStatus     `json:"status"`
		Blocks []models.ContentBlock `json:"content_blocks"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&wire))
	assert.Equal(t, "Post", wire.Title)
	require.Len(t, wire.Blocks, 1)
	assert.Equal(t, models.BlockHeading, wire.Blocks[0].Type)
	assert.Equal(t, "Hello", wire.Blocks[0].Text)
}

// TestPendingMediaPayload: an attached pending file travels as a
// multipart part under its pendingKey, and the block array references
// the key rather than the bytes.
func TestPendingMediaPayload(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list = AttachMedia(list, list[0].ID, "media_abc")

	fileX := models.PendingFile{Name: "chart.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 fake")}
	p := BuildPayload("Report", models.StatusDraft, list, models.PendingFileMap{"media_abc": fileX})

	body, contentType, err := p.Encode()
	require.NoError(t, err)

	fields, parts := decodeMultipart(t, body, contentType)
	assert.Equal(t, "Report", fields["title"])
	assert.Equal(t, "draft", fields["status"])

	var wireBlocks []models.ContentBlock
	require.NoError(t, json.Unmarshal([]byte(fields["content_blocks"]), &wireBlocks))
	require.Len(t, wireBlocks, 1)
	require.NotNil(t, wireBlocks[0].Media)
	assert.Equal(t, "media_abc", wireBlocks[0].Media.PendingKey)
	assert.Equal(t, "pdf", wireBlocks[0].Media.FileType)

	require.Len(t, parts, 1)
	assert.Equal(t, fileX.Data, parts["media_abc"])
}

func TestDeletedBlocksExcludedEntirely(t *testing.T) {
	list := Append(nil, models.BlockHeading)
	list = SetText(list, list[0].ID, "Keep")
	list = Append(list, models.BlockMedia)
	list = AttachMedia(list, list[1].ID, "media_gone")
	list = MarkDeleted(list, list[1].ID)

	p := BuildPayload("Post", models.StatusDraft, list,
		models.PendingFileMap{"media_gone": {Name: "x.png", Data: []byte("x")}})

	require.Len(t, p.Blocks, 1)
	assert.Equal(t, "Keep", p.Blocks[0].Text)
	assert.Empty(t, p.Parts, "deleted blocks must not pull file parts into the payload")
}

// TestDanglingPendingKeyDropped: a pendingKey with no file behind it
// is removed from the block rather than producing an invalid payload.
func TestDanglingPendingKeyDropped(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list = AttachMedia(list, list[0].ID, "media_missing")

	p := BuildPayload("Post", models.StatusDraft, list, models.PendingFileMap{})

	require.Len(t, p.Blocks, 1)
	assert.Nil(t, p.Blocks[0].Media)
	assert.Empty(t, p.Parts)
}

func TestDanglingKeyKeepsPersistedURL(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list[0].Media = &models.MediaRef{URL: "https://cdn.test/kept.png", PendingKey: "media_missing"}

	p := BuildPayload("Post", models.StatusDraft, list, models.PendingFileMap{})

	require.NotNil(t, p.Blocks[0].Media)
	assert.Equal(t, "https://cdn.test/kept.png", p.Blocks[0].Media.URL)
	assert.Empty(t, p.Blocks[0].Media.PendingKey)
}

// TestNeverBothURLAndPendingKey: whatever state a block reaches
// through attach/edit, no serialized block carries both a url and a
// pendingKey.
func TestNeverBothURLAndPendingKey(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list[0].Media = &models.MediaRef{URL: "https://cdn.test/old.png"}
	list = AttachMedia(list, list[0].ID, "media_new")

	p := BuildPayload("Post", models.StatusDraft, list,
		models.PendingFileMap{"media_new": {Name: "new.png", Data: []byte("new")}})

	body, contentType, err := p.Encode()
	require.NoError(t, err)
	fields, _ := decodeMultipart(t, body, contentType)

	var wireBlocks []models.ContentBlock
	require.NoError(t, json.Unmarshal([]byte(fields["content_blocks"]), &wireBlocks))
	for _, b := range wireBlocks {
		if b.Media == nil {
			continue
		}
		both := b.Media.URL != "" && b.Media.PendingKey != ""
		assert.False(t, both, "block %s has both url and pendingKey", b.ID)
	}
}

func TestBuildPayloadIsPure(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list = AttachMedia(list, list[0].ID, "media_k")
	files := models.PendingFileMap{"media_k": {Name: "a.png", Data: []byte("a")}}

	before := *list[0].Media
	_ = BuildPayload("Post", models.StatusDraft, list, files)

	assert.Equal(t, before, *list[0].Media, "BuildPayload must not mutate its inputs")
	assert.Len(t, files, 1)
}

func TestEncodeIsRepeatable(t *testing.T) {
	list := Append(nil, models.BlockMedia)
	list = AttachMedia(list, list[0].ID, "media_k")
	p := BuildPayload("Post", models.StatusPublished, list,
		models.PendingFileMap{"media_k": {Name: "a.png", Data: []byte("payload")}})

	_, _, err := p.Encode()
	require.NoError(t, err)

	// A request replayed after token refresh re-encodes the same
	// payload; the second body must be complete.
	body, contentType, err := p.Encode()
	require.NoError(t, err)
	_, parts := decodeMultipart(t, body, contentType)
	assert.Equal(t, []byte("payload"), parts["media_k"])
}
