package jsonc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardize(t *testing.T) {
	in := `{"url": "http://x//y", /* c */ "a": [1, 2,], // tail
"b": "quote \" // not a comment",}`
	out, err := Standardize([]byte(in))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"http://x//y"`)
	assert.Contains(t, string(out), `"quote \" // not a comment"`)
	assert.NotContains(t, string(out), "tail")
	assert.NotContains(t, string(out), ",]")
	assert.Len(t, out, len(in))
}

func TestStandardize_LeavesInputIntact(t *testing.T) {
	in := []byte(`{"a": 1, /* c */}`)
	_, err := Standardize(in)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, /* c */}`, string(in))
}

func TestUnmarshal(t *testing.T) {
	var cfg struct {
		CompilerOptions struct {
			BaseURL string              `json:"baseUrl"`
			Paths   map[string][]string `json:"paths"`
		} `json:"compilerOptions"`
	}
	in := `{
  // generated
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@kbn/data-plugin/*": ["src/plugins/data/*"], /* alias */
    },
  },
}`
	require.NoError(t, Unmarshal([]byte(in), &cfg))
	assert.Equal(t, ".", cfg.CompilerOptions.BaseURL)
	assert.Equal(t, []string{"src/plugins/data/*"}, cfg.CompilerOptions.Paths["@kbn/data-plugin/*"])
}

func TestUnmarshal_UnterminatedBlockComment(t *testing.T) {
	var v map[string]any
	err := Unmarshal([]byte("{\"a\": 1, /* open\n\"b\": 2}"), &v)
	assert.Error(t, err)
}
