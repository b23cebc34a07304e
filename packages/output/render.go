package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
)

// Exchange is one completed request as the CLI reports it.
type Exchange struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Duration   time.Duration
	// Value is what the status handler returned.
	Value any
}

// Render turns a handler result into printable text. Structured values are
// indented JSON, parsed markup is serialized back, and binary data is
// summarized.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("<%d bytes of binary data>", len(val))
	case *html.Node:
		var buf bytes.Buffer
		if err := html.Render(&buf, val); err != nil {
			return fmt.Sprintf("<unrenderable HTML: %v>", err)
		}
		return buf.String()
	case *codec.XMLNode:
		var sb strings.Builder
		renderXML(&sb, val, 0)
		return strings.TrimRight(sb.String(), "\n")
	case url.Values:
		return val.Encode()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func renderXML(sb *strings.Builder, n *codec.XMLNode, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + "<" + n.Name)
	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var escaped bytes.Buffer
		_ = xml.EscapeText(&escaped, []byte(n.Attrs[name]))
		fmt.Fprintf(sb, ` %s="%s"`, name, escaped.String())
	}
	if len(n.Children) == 0 && n.Text == "" {
		sb.WriteString("/>\n")
		return
	}
	sb.WriteString(">")
	if len(n.Children) == 0 {
		_ = xml.EscapeText(sb, []byte(n.Text))
		sb.WriteString("</" + n.Name + ">\n")
		return
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		renderXML(sb, c, depth+1)
	}
	sb.WriteString(indent + "</" + n.Name + ">\n")
}

func sortedHeaderKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
