package codec

import (
	"maps"
)

// Encoder serializes body into an Entity for contentType. The content type is
// the caller's original string, parameters included.
type Encoder func(contentType string, body Body, cs Charsets) (*Entity, error)

// Match reports which lookup tier selected an encoder or parser.
type Match int

const (
	// MatchExact is a registration for the exact content-type key.
	MatchExact Match = iota
	// MatchFamily is the encoder of the content type's family.
	MatchFamily
	// MatchTextual is the text/* or *+text heuristic.
	MatchTextual
	// MatchFallback is the terminal binary encoder.
	MatchFallback
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFamily:
		return "family"
	case MatchTextual:
		return "textual"
	case MatchFallback:
		return "fallback"
	}
	return "unknown"
}

// Registry maps content types to encoders. It is populated during setup and
// must not be modified once it is shared between goroutines.
type Registry struct {
	charsets Charsets
	exact    map[string]Encoder
	families map[ContentType]Encoder
	as       map[string]ContentType
}

// NewRegistry returns a registry with the built-in encoders registered for
// every family.
func NewRegistry(cs Charsets) *Registry {
	return &Registry{
		charsets: cs,
		exact:    make(map[string]Encoder),
		families: map[ContentType]Encoder{
			Binary:    EncodeBinary,
			Text:      EncodeText,
			URLEnc:    EncodeForm,
			XML:       EncodeXML,
			HTML:      EncodeXML,
			JSON:      EncodeJSON,
			Multipart: EncodeMultipart,
		},
		as: make(map[string]ContentType),
	}
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{
		charsets: r.charsets.clone(),
		exact:    maps.Clone(r.exact),
		families: maps.Clone(r.families),
		as:       maps.Clone(r.as),
	}
}

// Charsets returns the charset defaults the registry encodes with.
func (r *Registry) Charsets() Charsets {
	return r.charsets
}

// Register installs enc for the exact content type, replacing any previous
// registration. Parameters on contentType are ignored.
func (r *Registry) Register(contentType string, enc Encoder) {
	r.exact[Key(contentType)] = enc
}

// RegisterFamily replaces the encoder shared by every member of family.
func (r *Registry) RegisterFamily(family ContentType, enc Encoder) {
	r.families[family] = enc
}

// EncodeAs encodes contentType with family's encoder. The header still carries
// the original content type.
func (r *Registry) EncodeAs(contentType string, family ContentType) {
	r.as[Key(contentType)] = family
}

// Resolve returns the encoder for contentType.
func (r *Registry) Resolve(contentType string) Encoder {
	enc, _ := r.Lookup(contentType)
	return enc
}

// Lookup returns the encoder for contentType and the tier that matched it:
// exact key, family membership, the textual heuristic, then binary.
func (r *Registry) Lookup(contentType string) (Encoder, Match) {
	key := Key(contentType)
	if enc, ok := r.exact[key]; ok {
		return enc, MatchExact
	}
	if family, ok := r.as[key]; ok {
		if enc, ok := r.families[family]; ok {
			return enc, MatchExact
		}
	}
	if family, ok := FamilyOf(key); ok {
		if enc, ok := r.families[family]; ok {
			return enc, MatchFamily
		}
	}
	if LooksTextual(key) {
		if enc, ok := r.families[Text]; ok {
			return enc, MatchTextual
		}
		return EncodeText, MatchTextual
	}
	if enc, ok := r.families[Binary]; ok {
		return enc, MatchFallback
	}
	return EncodeBinary, MatchFallback
}

// Encode serializes v for contentType. A nil value yields a nil entity.
func (r *Registry) Encode(contentType string, v any) (*Entity, error) {
	body := BodyOf(v)
	if body == nil {
		return nil, nil
	}
	return r.Resolve(contentType)(contentType, body, r.charsets)
}
