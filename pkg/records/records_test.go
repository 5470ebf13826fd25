package records

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	t.Run("stable known digest", func(t *testing.T) {
		assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", ContentHash(""))
		assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", ContentHash("hello"))
	})

	t.Run("fixed length and deterministic", func(t *testing.T) {
		a := ContentHash(strings.Repeat("x", 10000))
		b := ContentHash(strings.Repeat("x", 10000))
		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
		assert.NotEqual(t, a, ContentHash(strings.Repeat("x", 9999)))
	})
}

func TestParseTag(t *testing.T) {
	tag, ok := ParseTag("MCP")
	assert.True(t, ok)
	assert.Equal(t, TagMCP, tag)

	_, ok = ParseTag("Prompt")
	assert.False(t, ok)

	assert.Equal(t, TagSkill, NormalizeTag("Prompt"))
	assert.Equal(t, TagSkill, NormalizeTag(""))
	assert.Equal(t, TagMCP, NormalizeTag(" MCP "))
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"Active":      StatusActive,
		"":            StatusActive,
		"Broken":      StatusBroken,
		"Review":      StatusReview,
		"Not started": StatusUnknown,
		"Done":        StatusUnknown,
	}
	for label, want := range tests {
		t.Run(label, func(t *testing.T) {
			assert.Equal(t, want, ParseStatus(label))
		})
	}

	assert.False(t, StatusUnknown.Valid())
	assert.True(t, StatusReview.Valid())
}

func TestEnumJSON(t *testing.T) {
	r := Record{Title: "X", Tag: TagMCP, Status: StatusBroken}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tag":"MCP"`)
	assert.Contains(t, string(data), `"status":"Broken"`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TagMCP, back.Tag)
	assert.Equal(t, StatusBroken, back.Status)
}

func TestSelfManaged(t *testing.T) {
	assert.True(t, (&Record{}).SelfManaged())
	assert.True(t, (&Record{SourceURL: "  "}).SelfManaged())
	assert.False(t, (&Record{SourceURL: "https://github.com/x"}).SelfManaged())
}

func TestSplitChunks(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SplitChunks("", 10))
	})

	t.Run("short content is one chunk", func(t *testing.T) {
		assert.Equal(t, []string{"abc"}, SplitChunks("abc", 10))
	})

	t.Run("exact multiple", func(t *testing.T) {
		chunks := SplitChunks(strings.Repeat("a", 20), 10)
		require.Len(t, chunks, 2)
		assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	})

	t.Run("lossless round trip", func(t *testing.T) {
		content := strings.Repeat("0123456789", 450) + "tail"
		chunks := SplitChunks(content, 2000)
		require.Len(t, chunks, 3)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 2000)
		}
		assert.Equal(t, content, JoinChunks(chunks))
	})

	t.Run("multibyte runes are not split", func(t *testing.T) {
		content := strings.Repeat("自动同步", 5)
		chunks := SplitChunks(content, 3)
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c))
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 3)
		}
		assert.Equal(t, content, JoinChunks(chunks))
	})

	t.Run("non-positive max uses store default", func(t *testing.T) {
		chunks := SplitChunks(strings.Repeat("b", 2001), 0)
		assert.Len(t, chunks, 2)
	})
}
