package inventory

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is the small subset of CSS the listing pages need:
// ".class", "[attr]", or a bare tag name.
type selector struct {
	class string
	attr  string
	tag   string
}

func parseSelector(raw string) selector {
	switch {
	case strings.HasPrefix(raw, "."):
		return selector{class: raw[1:]}
	case strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"):
		return selector{attr: raw[1 : len(raw)-1]}
	default:
		return selector{tag: strings.ToLower(raw)}
	}
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch {
	case s.class != "":
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == s.class {
				return true
			}
		}
		return false
	case s.attr != "":
		_, ok := lookupAttr(n, s.attr)
		return ok
	default:
		return n.Data == s.tag
	}
}

// findAll returns descendants of root matching sel in document order.
func findAll(root *html.Node, raw string) []*html.Node {
	sel := parseSelector(raw)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if sel.matches(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// firstText returns the trimmed text of the first match of the first
// selector that yields non-empty text.
func firstText(root *html.Node, selectors ...string) string {
	for _, raw := range selectors {
		for _, n := range findAll(root, raw) {
			if t := text(n); t != "" {
				return t
			}
			// attribute-only markers such as data-price="$31,000"
			if sel := parseSelector(raw); sel.attr != "" {
				if v, _ := lookupAttr(n, sel.attr); strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
			break
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
