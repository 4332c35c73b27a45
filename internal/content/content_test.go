package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"tags", "<p>Hello <strong>there</strong></p><p>again</p>", "Hello there again"},
		{"entities", "<p>fish &amp; chips</p>", "fish & chips"},
		{"whitespace", "<h2>Title</h2>\n\n  <p>body</p>", "Title body"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestExcerpt(t *testing.T) {
	short := Excerpt("<p>Short body</p>")
	assert.Equal(t, "Short body...", short)

	long := Excerpt("<p>" + strings.Repeat("a", 500) + "</p>")
	assert.Equal(t, strings.Repeat("a", ExcerptLength)+"...", long)
}

func TestFormatParagraphs(t *testing.T) {
	got := FormatParagraphs("First **bold** line\nsecond *soft* line\n\nNext paragraph")
	assert.Equal(t, "<p>First <strong>bold</strong> line<br>second <em>soft</em> line</p><p>Next paragraph</p>", got)

	html := "<p>already formatted</p>"
	assert.Equal(t, html, FormatParagraphs(html))

	assert.Equal(t, "", FormatParagraphs("   \n  "))
	assert.Equal(t, "<p>a &lt; b</p>", FormatParagraphs("a < b"))
}

func TestNormalizeHashtags(t *testing.T) {
	got := NormalizeHashtags([]string{"#Go", "go", " backend ", "", "##Cloud", "cloud"})
	assert.Equal(t, []string{"Go", "backend", "Cloud"}, got)
	assert.Empty(t, NormalizeHashtags(nil))
}
