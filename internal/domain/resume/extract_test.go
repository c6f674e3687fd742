package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedMIME(t *testing.T) {
	assert.True(t, SupportedMIME("application/pdf"))
	assert.True(t, SupportedMIME("text/plain"))
	assert.True(t, SupportedMIME("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.False(t, SupportedMIME("image/png"))
	assert.False(t, SupportedMIME(""))
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText("text/plain", []byte("Jane Doe\nCS major"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nCS major", text)
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := ExtractText("image/png", []byte{0x89, 0x50})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractTextBadPDF(t *testing.T) {
	_, err := ExtractText("application/pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
