package codec

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/abdul-hamid-achik/hitwire/packages/charset"
)

// Parser turns a response payload into a domain value. cs is the charset
// declared by the response, or the parser registry default.
type Parser func(contentType string, data []byte, cs string) (any, error)

// Parsers maps content types to parsers with the same lookup tiers as
// Registry. It is populated during setup and read-only afterwards.
type Parsers struct {
	defaultCharset string
	exact          map[string]Parser
	families       map[ContentType]Parser
}

// NewParsers returns the built-in parsers. Payloads without a declared
// charset are decoded as defaultCharset.
func NewParsers(defaultCharset string) *Parsers {
	if defaultCharset == "" {
		defaultCharset = charset.UTF8
	}
	return &Parsers{
		defaultCharset: defaultCharset,
		exact:          make(map[string]Parser),
		families: map[ContentType]Parser{
			Binary: ParseBinary,
			Text:   ParseText,
			JSON:   ParseJSON,
			XML:    ParseXML,
			HTML:   ParseHTML,
			URLEnc: ParseForm,
		},
	}
}

// Clone returns an independent copy.
func (p *Parsers) Clone() *Parsers {
	return &Parsers{
		defaultCharset: p.defaultCharset,
		exact:          maps.Clone(p.exact),
		families:       maps.Clone(p.families),
	}
}

// Register installs parser for the exact content type.
func (p *Parsers) Register(contentType string, parser Parser) {
	p.exact[Key(contentType)] = parser
}

// RegisterFamily replaces the parser shared by every member of family.
func (p *Parsers) RegisterFamily(family ContentType, parser Parser) {
	p.families[family] = parser
}

// Lookup returns the parser for contentType and the tier that matched it.
func (p *Parsers) Lookup(contentType string) (Parser, Match) {
	key := Key(contentType)
	if parser, ok := p.exact[key]; ok {
		return parser, MatchExact
	}
	if family, ok := FamilyOf(key); ok {
		if parser, ok := p.families[family]; ok {
			return parser, MatchFamily
		}
	}
	if LooksTextual(key) {
		if parser, ok := p.families[Text]; ok {
			return parser, MatchTextual
		}
		return ParseText, MatchTextual
	}
	if parser, ok := p.families[Binary]; ok {
		return parser, MatchFallback
	}
	return ParseBinary, MatchFallback
}

// Parse parses data as contentType.
func (p *Parsers) Parse(contentType string, data []byte) (any, error) {
	cs := CharsetOf(contentType)
	if cs == "" {
		cs = p.defaultCharset
	}
	parser, _ := p.Lookup(contentType)
	return parser(contentType, data, cs)
}

// ParseBinary returns the payload unchanged.
func ParseBinary(_ string, data []byte, _ string) (any, error) {
	return data, nil
}

// ParseText decodes the payload into a string.
func ParseText(_ string, data []byte, cs string) (any, error) {
	return charset.Decode(data, cs)
}

// ParseJSON decodes the payload into map[string]any, []any or a scalar.
func ParseJSON(_ string, data []byte, cs string) (any, error) {
	text, err := charset.Decode(data, cs)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseForm decodes an application/x-www-form-urlencoded payload.
func ParseForm(_ string, data []byte, cs string) (any, error) {
	text, err := charset.Decode(data, cs)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(strings.TrimSpace(text))
}

// ParseHTML parses the payload into an HTML document tree.
func ParseHTML(contentType string, data []byte, _ string) (any, error) {
	r, err := htmlcharset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return nil, err
	}
	return html.Parse(r)
}

// XMLNode is a parsed XML element.
type XMLNode struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*XMLNode
}

// Child returns the first child element called name.
func (n *XMLNode) Child(name string) *XMLNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ParseXML parses the payload into an *XMLNode tree rooted at the document
// element. The XML declaration's encoding wins over cs.
func ParseXML(_ string, data []byte, cs string) (any, error) {
	var r io.Reader = bytes.NewReader(data)
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<?xml")) {
		text, err := charset.Decode(data, cs)
		if err != nil {
			return nil, err
		}
		r = strings.NewReader(text)
	}
	dec := xml.NewDecoder(r)
	dec.CharsetReader = htmlcharset.NewReaderLabel

	var stack []*XMLNode
	var root *XMLNode
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &XMLNode{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				node := stack[len(stack)-1]
				node.Text += strings.TrimSpace(string(t))
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xml: no root element")
	}
	return root, nil
}
