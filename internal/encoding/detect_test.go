package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ventas/internal/encoding"
)

func readAll(t *testing.T, input []byte) string {
	t.Helper()

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(got)
}

func TestNewUTF8Reader(t *testing.T) {
	type testCase struct {
		name  string
		input []byte
		want  string
	}

	tests := []testCase{
		{
			name:  "UTF8Passthrough",
			input: []byte("ID;Nombre;Precio;Stock\n2;Cañón;1.150.000,00;10\n"),
			want:  "ID;Nombre;Precio;Stock\n2;Cañón;1.150.000,00;10\n",
		},
		{
			// "Cañón" in Windows-1252: ñ = 0xF1, ó = 0xF3.
			name:  "Windows1252",
			input: []byte{'C', 'a', 0xF1, 0xF3, 'n', ';', '1', '0', '\n'},
			want:  "Cañón;10\n",
		},
		{
			name:  "UTF8BOMStripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Año;5\n")...),
			want:  "Año;5\n",
		},
		{
			// "Año" as UTF-16LE with BOM.
			name:  "UTF16LE",
			input: []byte{0xFF, 0xFE, 'A', 0x00, 0xF1, 0x00, 'o', 0x00},
			want:  "Año",
		},
		{
			name:  "Empty",
			input: []byte{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readAll(t, tt.input))
		})
	}
}

func TestDetect(t *testing.T) {
	assert.Equal(t, encoding.UTF8, encoding.Detect([]byte("plain ascii")))
	assert.Equal(t, encoding.UTF16BE, encoding.Detect([]byte{0xFE, 0xFF, 0x00, 'A'}))
	assert.Equal(t, encoding.UTF8, encoding.Detect([]byte{0xEF, 0xBB, 0xBF, 'x'}))
}
