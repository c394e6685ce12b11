package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/billfold/internal/encoding"
)

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	// Valid UTF-8 statement text should pass through unchanged.
	input := "Café da Manhã - $5.50 on 2024-01-15\nSalário - $2000.00 on 2024-01-01\n"
	r, err := encoding.NewUTF8Reader(bytes.NewReader([]byte(input)))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_Latin1(t *testing.T) {
	// Windows-1252 encoded "Café - $5.50". In Windows-1252: é = 0xE9.
	latin1Bytes := []byte{
		'C', 'a', 'f', 0xE9, ' ', '-', ' ', '$', '5', '.', '5', '0', '\n',
	}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(latin1Bytes))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Café - $5.50\n", string(got))
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	// UTF-8 BOM (0xEF 0xBB 0xBF) should be stripped.
	bom := []byte{0xEF, 0xBB, 0xBF}
	content := []byte("Grocery Store - $45.20 on 2024-01-16\n")
	input := append(bom, content...)

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestDecodeString(t *testing.T) {
	got, err := encoding.DecodeString([]byte("Coffee Shop - $5.50\n"))
	require.NoError(t, err)
	assert.Equal(t, "Coffee Shop - $5.50\n", got)
}
