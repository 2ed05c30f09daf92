package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLanding(t *testing.T) {
	l, err := LoadLanding("", "")
	require.NoError(t, err)

	assert.Len(t, l.Features, 4)
	assert.Len(t, l.Testimonials, 3)
	require.Len(t, l.FAQs, 4)
	assert.Equal(t, "How does JetSocket compare to Pusher?", l.FAQs[0].Question)
	assert.Equal(t, DefaultDocsURL, l.Features[0].Href)
	assert.Equal(t, DefaultBlogURL, l.Footer.App[1].Href)
	assert.Equal(t, "#", l.Footer.Company[0].Href)
}

func TestLoadLanding_CustomURLs(t *testing.T) {
	l, err := LoadLanding("https://docs.example.com", "https://blog.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com", l.Footer.App[0].Href)
	assert.Equal(t, "https://blog.example.com", l.Footer.App[1].Href)
}
