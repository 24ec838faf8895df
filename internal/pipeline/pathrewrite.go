package pipeline

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// cssURL matches url(...) with optional quotes. Group 1 is the quote, group
// 2 the reference.
var cssURL = regexp.MustCompile(`url\(\s*(['"]?)([^'")\s]+)['"]?\s*\)`)

// RewriteRelativePaths turns references relative to sourceDir into file://
// URLs. Prepared documents are rendered from a temporary file, so without
// this every relative image, stylesheet and link would resolve against the
// temp directory.
//
// Covered: img src and srcset, picture source srcset, stylesheet and icon
// links, anchors, iframes, and url() inside <style> blocks and style
// attributes. Scripts are never touched. References that escape sourceDir
// stay as written. A document that declares its own <base href> is
// returned unchanged since the browser already resolves against it.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	dir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	root, fragment, err := parseDocument(htmlContent)
	if err != nil {
		return "", err
	}
	if declaresBase(root) {
		return htmlContent, nil
	}

	pathRewriter{dir: dir}.walk(root)
	return renderDocument(root, fragment)
}

// parseDocument parses full documents as-is and everything else as a body
// fragment, so rendering a fragment does not grow an <html> wrapper.
func parseDocument(content string) (root *html.Node, fragment bool, err error) {
	head := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		root, err = html.Parse(strings.NewReader(content))
		return root, false, err
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}
	root = &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, true, nil
}

func renderDocument(root *html.Node, fragment bool) (string, error) {
	var buf strings.Builder
	if !fragment {
		err := html.Render(&buf, root)
		return buf.String(), err
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func declaresBase(n *html.Node) bool {
	if n.Type == html.ElementNode && n.DataAtom == atom.Base && strings.TrimSpace(attr(n, "href")) != "" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if declaresBase(c) {
			return true
		}
	}
	return false
}

type pathRewriter struct {
	dir string
}

func (r pathRewriter) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Img:
			r.rewriteAttr(n, "src", r.ref)
			r.rewriteAttr(n, "srcset", r.srcset)
		case atom.Source:
			r.rewriteAttr(n, "srcset", r.srcset)
		case atom.Link:
			if hasRel(n, "stylesheet", "icon") {
				r.rewriteAttr(n, "href", r.ref)
			}
		case atom.A:
			r.rewriteAttr(n, "href", r.ref)
		case atom.Iframe:
			r.rewriteAttr(n, "src", r.ref)
		case atom.Script:
			return
		case atom.Style:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					c.Data = r.css(c.Data)
				}
			}
		}
		r.rewriteAttr(n, "style", r.css)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func (r pathRewriter) rewriteAttr(n *html.Node, key string, rewrite func(string) string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = rewrite(n.Attr[i].Val)
		}
	}
}

// ref returns v as a file:// URL when it is a relative path inside the
// source directory, and v unchanged otherwise. Fragments are kept so
// links into other local documents still land on their anchor.
func (r pathRewriter) ref(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
		return v
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return v
	}
	if strings.HasPrefix(u.Path, "/") || filepath.IsAbs(u.Path) {
		return v
	}

	target := filepath.Join(r.dir, filepath.FromSlash(u.Path))
	if !isPathUnderDir(target, r.dir) {
		return v
	}

	out := FileURL(target)
	if u.Fragment != "" {
		out += "#" + u.EscapedFragment()
	}
	return out
}

// srcset rewrites each image candidate and keeps its descriptor.
func (r pathRewriter) srcset(v string) string {
	candidates := strings.Split(v, ",")
	for i, c := range candidates {
		fields := strings.Fields(c)
		if len(fields) == 0 {
			continue
		}
		fields[0] = r.ref(fields[0])
		candidates[i] = strings.Join(fields, " ")
	}
	return strings.Join(candidates, ", ")
}

func (r pathRewriter) css(v string) string {
	return cssURL.ReplaceAllStringFunc(v, func(m string) string {
		sub := cssURL.FindStringSubmatch(m)
		resolved := r.ref(sub[2])
		if resolved == sub[2] {
			return m
		}
		return "url(" + sub[1] + resolved + sub[1] + ")"
	})
}

func hasRel(n *html.Node, want ...string) bool {
	for _, rel := range strings.Fields(attr(n, "rel")) {
		for _, w := range want {
			if strings.EqualFold(rel, w) {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// isPathUnderDir reports whether path is dir or lies below it.
func isPathUnderDir(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FileURL converts an absolute path to a file:// URL, escaping as needed.
// Windows paths gain the leading slash file URLs require.
func FileURL(absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
