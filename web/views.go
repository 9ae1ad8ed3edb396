package web

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"github.com/eringen/inkpost/model"
)

const dateLayout = "Jan 2, 2006 15:04"

// Post content comes from a rich-text editor; only user-generated-content
// markup survives.
var contentPolicy = bluemonday.UGCPolicy()

// PageMeta carries per-page metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string
	JSONLD      string
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// safeURL keeps http(s) and site-relative URLs and drops everything else.
func safeURL(raw string) string {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Layout wraps body in the page shell.
func Layout(siteName string, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := siteName
		if meta.Title != "" {
			title = meta.Title + " | " + siteName
		}
		if err := write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, esc(title), `</title>`,
		); err != nil {
			return err
		}
		if meta.Description != "" {
			if err := write(w, `<meta name="description" content="`, esc(meta.Description), `">`); err != nil {
				return err
			}
		}
		if meta.URL != "" {
			if err := write(w, `<link rel="canonical" href="`, esc(safeURL(meta.URL)), `">`); err != nil {
				return err
			}
		}
		if meta.JSONLD != "" {
			if err := write(w, `<script type="application/ld+json">`, meta.JSONLD, `</script>`); err != nil {
				return err
			}
		}
		if err := write(w, `</head><body><main><header><a href="/" class="logo">`, esc(siteName), `</a></header>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</main></body></html>`)
	})
}

// PostEntry renders one post in the list.
func PostEntry(p model.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		href := "/post/" + url.PathEscape(p.ID)
		if err := write(w, `<article class="post">`); err != nil {
			return err
		}
		if img := safeURL(p.Image); img != "" {
			if err := write(w, `<div class="image"><a href="`, esc(href), `"><img src="`, esc(img), `" alt=""></a></div>`); err != nil {
				return err
			}
		}
		return write(w,
			`<div class="texts"><h2><a href="`, esc(href), `">`, esc(p.Title), `</a></h2>`,
			`<p class="info"><span class="author">`, esc(p.Author.Username), `</span> `,
			`<time datetime="`, p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), `">`, p.CreatedAt.Format(dateLayout), `</time></p>`,
			`<p class="summary">`, esc(p.Summary), `</p></div></article>`,
		)
	})
}

// Index lists posts, newest first.
func Index(posts []model.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(posts) == 0 {
			return write(w, `<p class="empty">No posts yet.</p>`)
		}
		for _, p := range posts {
			if err := PostEntry(p).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// PostPage renders a single post with its sanitized rich-text content.
func PostPage(p model.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<article class="post-page"><h1>`, esc(p.Title), `</h1>`,
			`<time datetime="`, p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), `">`, p.CreatedAt.Format(dateLayout), `</time>`,
			`<div class="author">by @`, esc(p.Author.Username), `</div>`,
		); err != nil {
			return err
		}
		if img := safeURL(p.Image); img != "" {
			if err := write(w, `<div class="image"><img src="`, esc(img), `" alt=""></div>`); err != nil {
				return err
			}
		}
		return write(w, `<div class="content">`, contentPolicy.Sanitize(p.Content), `</div></article>`)
	})
}

// Message renders a short status page body such as a 404.
func Message(heading, text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w, fmt.Sprintf(`<section class="message"><h1>%s</h1><p>%s</p><p><a href="/">Back to posts</a></p></section>`,
			esc(heading), esc(text)))
	})
}
