// Package content serves the static marketing copy of the public site.
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed landing.yaml
var landingYAML []byte

const (
	DefaultDocsURL = "https://docs.jetsocket.io"
	DefaultBlogURL = "https://jetsocket.io/blog"
)

type Feature struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
	Href        string `yaml:"href" json:"href"`
}

type Testimonial struct {
	Name      string `yaml:"name" json:"name"`
	Role      string `yaml:"role" json:"role"`
	SocialURL string `yaml:"social_url" json:"social_url"`
	Quote     string `yaml:"quote" json:"quote"`
}

type FAQ struct {
	ID       int    `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

type Link struct {
	Name string `yaml:"name" json:"name"`
	Href string `yaml:"href" json:"href"`
}

type Footer struct {
	App     []Link `yaml:"app" json:"app"`
	Company []Link `yaml:"company" json:"company"`
}

type Landing struct {
	Features     []Feature     `yaml:"features" json:"features"`
	Testimonials []Testimonial `yaml:"testimonials" json:"testimonials"`
	FAQs         []FAQ         `yaml:"faqs" json:"faqs"`
	Footer       Footer        `yaml:"footer" json:"footer"`
}

// LoadLanding parses the embedded copy. The placeholder hrefs "docs" and
// "blog" are replaced with the given URLs, or the defaults when empty.
func LoadLanding(docsURL, blogURL string) (*Landing, error) {
	var l Landing
	if err := yaml.Unmarshal(landingYAML, &l); err != nil {
		return nil, fmt.Errorf("parse landing content: %w", err)
	}
	if docsURL == "" {
		docsURL = DefaultDocsURL
	}
	if blogURL == "" {
		blogURL = DefaultBlogURL
	}
	resolve := func(href string) string {
		switch href {
		case "docs":
			return docsURL
		case "blog":
			return blogURL
		}
		return href
	}
	for i := range l.Features {
		l.Features[i].Href = resolve(l.Features[i].Href)
	}
	for i := range l.Footer.App {
		l.Footer.App[i].Href = resolve(l.Footer.App[i].Href)
	}
	for i := range l.Footer.Company {
		l.Footer.Company[i].Href = resolve(l.Footer.Company[i].Href)
	}
	return &l, nil
}
