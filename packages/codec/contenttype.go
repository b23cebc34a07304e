package codec

import (
	"fmt"
	"slices"
	"strings"
)

// ContentType is a content-type family: a canonical media type together with
// every header value considered synonymous with it.
type ContentType int

const (
	Any ContentType = iota
	Text
	JSON
	XML
	HTML
	URLEnc
	Multipart
	Binary
)

const (
	plusJSON = "+json"
	plusXML  = "+xml"
	plusHTML = "+html"
	plusText = "+text"
)

var contentTypeStrings = map[ContentType][]string{
	Any:       {"*/*"},
	Text:      {"text/plain"},
	JSON:      {"application/json", "application/javascript", "text/javascript", "text/json"},
	XML:       {"application/xml", "text/xml", "application/xhtml+xml"},
	HTML:      {"text/html"},
	URLEnc:    {"application/x-www-form-urlencoded"},
	Multipart: {"multipart/form-data", "multipart/mixed"},
	Binary:    {"application/octet-stream"},
}

// String returns the canonical media type of the family.
func (c ContentType) String() string {
	if s, ok := contentTypeStrings[c]; ok {
		return s[0]
	}
	return fmt.Sprintf("ContentType(%d)", int(c))
}

// Strings returns every media type of the family, canonical first.
func (c ContentType) Strings() []string {
	return slices.Clone(contentTypeStrings[c])
}

// WithCharset returns the canonical media type with a charset parameter.
func (c ContentType) WithCharset(charset string) string {
	return fmt.Sprintf("%s; charset=%s", c.String(), strings.TrimSpace(charset))
}

// FamilyOf returns the family a content-type string belongs to. Parameters
// such as charset are ignored and matching is case-insensitive.
func FamilyOf(contentType string) (ContentType, bool) {
	key := Key(contentType)
	if key == "" {
		return 0, false
	}
	switch {
	case slices.Contains(contentTypeStrings[XML], key) || strings.HasSuffix(key, plusXML):
		return XML, true
	case slices.Contains(contentTypeStrings[JSON], key) || strings.HasSuffix(key, plusJSON):
		return JSON, true
	case slices.Contains(contentTypeStrings[Text], key):
		return Text, true
	case slices.Contains(contentTypeStrings[HTML], key) || strings.HasSuffix(key, plusHTML):
		return HTML, true
	case slices.Contains(contentTypeStrings[URLEnc], key):
		return URLEnc, true
	case slices.Contains(contentTypeStrings[Multipart], key):
		return Multipart, true
	case slices.Contains(contentTypeStrings[Binary], key):
		return Binary, true
	case slices.Contains(contentTypeStrings[Any], key):
		return Any, true
	}
	return 0, false
}

// Key normalizes a content-type string for lookups: parameters are stripped
// and the media type is lower-cased.
func Key(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// SameKey reports whether two content-type strings normalize to the same key.
func SameKey(a, b string) bool {
	return Key(a) == Key(b)
}

// IsAny reports whether contentType is empty or the */* wildcard.
func IsAny(contentType string) bool {
	key := Key(contentType)
	return key == "" || key == Any.String()
}

// LooksTextual reports whether contentType matches the text/* or *+text
// heuristic.
func LooksTextual(contentType string) bool {
	key := Key(contentType)
	return strings.HasPrefix(key, "text/") || strings.HasSuffix(key, plusText)
}

// CharsetOf returns the charset parameter of contentType, or "".
func CharsetOf(contentType string) string {
	_, params, found := strings.Cut(contentType, ";")
	if !found {
		return ""
	}
	for _, param := range strings.Split(params, ";") {
		name, value, ok := strings.Cut(param, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "charset") {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return ""
}

var familyNames = map[string]ContentType{
	"any":       Any,
	"text":      Text,
	"json":      JSON,
	"xml":       XML,
	"html":      HTML,
	"urlenc":    URLEnc,
	"form":      URLEnc,
	"multipart": Multipart,
	"binary":    Binary,
}

// ParseFamily accepts a family name such as "json" or "urlenc", or any media
// type belonging to a family.
func ParseFamily(s string) (ContentType, bool) {
	if family, ok := familyNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return family, true
	}
	return FamilyOf(s)
}
