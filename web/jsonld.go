package web

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/eringen/inkpost/model"
)

func (s *Server) websiteJSONLD() string {
	return marshalJSONLD(map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     s.cfg.SiteName,
		"url":      s.siteURL("/"),
	})
}

// blogPostingJSONLD describes a post as a Schema.org BlogPosting.
func (s *Server) blogPostingJSONLD(p model.Post) string {
	postURL := s.siteURL("/post/" + url.PathEscape(p.ID))
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      p.Title,
		"description":   p.Summary,
		"datePublished": p.CreatedAt.UTC().Format(time.RFC3339),
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  p.Author.Username,
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  s.cfg.SiteName,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !p.UpdatedAt.IsZero() {
		data["dateModified"] = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if img := safeURL(p.Image); img != "" {
		data["image"] = img
	}
	return marshalJSONLD(data)
}

// marshalJSONLD relies on json.Marshal escaping <, > and & so the result
// can sit inside a script element.
func marshalJSONLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
