package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string, opts ...Option) Builder {
	t.Helper()
	b, err := Parse(raw, opts...)
	require.NoError(t, err)
	return b
}

func TestBuilder_WithPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"parent reference", "http://h/a/b/", "../c", "http://h/a/c"},
		{"relative segment", "http://h/a/b/", "one/1", "http://h/a/b/one/1"},
		{"absolute path", "http://h/a/b/", "/root", "http://h/root"},
		{"sibling of file", "http://h/a/b", "c", "http://h/a/c"},
		{"keeps query and fragment", "http://h/a/?x=1#top", "b", "http://h/a/b?x=1#top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := mustParse(t, tt.base).WithPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestBuilder_WithPathExpandedTemplate(t *testing.T) {
	path, err := Expand("one/{x}", map[string]any{"x": 7})
	require.NoError(t, err)

	b, err := mustParse(t, "http://h/a/b/").WithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://h/a/b/one/7", b.String())
}

func TestBuilder_IsValueType(t *testing.T) {
	base := mustParse(t, "http://h/a")
	changed, err := base.WithPath("/b")
	require.NoError(t, err)

	assert.Equal(t, "http://h/a", base.String())
	assert.Equal(t, "http://h/b", changed.String())
}

func TestBuilder_SchemeHostPortFragment(t *testing.T) {
	b := mustParse(t, "http://example.com:8080/path")

	b, err := b.WithScheme("https")
	require.NoError(t, err)
	b, err = b.WithHost("api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com:8080/path", b.String())

	b, err = b.WithPort(-1)
	require.NoError(t, err)
	b, err = b.WithFragment("section 1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/path#section%201", b.String())

	b, err = b.WithPort(9000)
	require.NoError(t, err)
	assert.Equal(t, "api.example.com:9000", b.URL().Host)
}

func TestBuilder_SyntaxErrors(t *testing.T) {
	b := mustParse(t, "http://example.com")

	_, err := b.WithScheme("ht tp")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "ht tp", syntaxErr.Input)

	_, err = b.WithHost("bad host")
	require.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, err.Error(), "bad host")

	_, err = b.WithPort(70000)
	assert.ErrorAs(t, err, &syntaxErr)

	_, err = Parse("http://a b/")
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestBuilder_SetQueryRoundTrip(t *testing.T) {
	m := map[string]any{
		"tag":  []string{"b", "a", "c"},
		"name": "ann",
		"page": 2,
	}

	t.Run("encoding disabled", func(t *testing.T) {
		b, err := mustParse(t, "http://h/", WithEncoding(false)).SetQuery(ParamsFromMap(m))
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{
			"tag":  {"b", "a", "c"},
			"name": {"ann"},
			"page": {"2"},
		}, b.Query().Grouped())
	})

	t.Run("encoding enabled", func(t *testing.T) {
		b, err := mustParse(t, "http://h/").SetQuery(ParamsFromMap(m))
		require.NoError(t, err)
		again, err := b.SetQuery(b.Query())
		require.NoError(t, err)
		assert.Equal(t, b.Query().Grouped(), again.Query().Grouped())
		assert.Equal(t, []string{"b", "a", "c"}, again.Query().Get("tag"))
	})
}

func TestBuilder_QueryEncoding(t *testing.T) {
	var params Params
	params = params.Add("q", "hello world").Add("sym", "a+b&c").Add("flag", NoValue)

	b, err := mustParse(t, "http://h/search").SetQuery(params)
	require.NoError(t, err)
	assert.Equal(t, "q=hello%20world&sym=a%2Bb%26c&flag", b.URL().RawQuery)

	decoded, err := b.Query().Decode()
	require.NoError(t, err)
	assert.Equal(t, []string{"a+b&c"}, decoded.Get("sym"))
	assert.True(t, decoded[2].NoValue)
}

func TestBuilder_QueryPassThroughWhenEncodingDisabled(t *testing.T) {
	var params Params
	params = params.Add("q", "already%20encoded")

	b, err := mustParse(t, "http://h/", WithEncoding(false)).SetQuery(params)
	require.NoError(t, err)
	assert.Equal(t, "http://h/?q=already%20encoded", b.String())
}

func TestBuilder_QueryCharset(t *testing.T) {
	var params Params
	params = params.Add("city", "Malmö")

	latin, err := mustParse(t, "http://h/", WithCharset("ISO-8859-1")).SetQuery(params)
	require.NoError(t, err)
	assert.Equal(t, "city=Malm%F6", latin.URL().RawQuery)

	utf, err := mustParse(t, "http://h/").SetQuery(params)
	require.NoError(t, err)
	assert.Equal(t, "city=Malm%C3%B6", utf.URL().RawQuery)
}

func TestBuilder_AddQueryParamsNeverDoubleEncodes(t *testing.T) {
	b := mustParse(t, "http://h/?q=a%20b")

	var params Params
	b, err := b.AddQueryParams(params.Add("q", "c d"))
	require.NoError(t, err)
	assert.Equal(t, "q=a%20b&q=c%20d", b.URL().RawQuery)
	assert.Equal(t, []string{"a%20b", "c%20d"}, b.Query().Get("q"))
}

func TestBuilder_RemoveQueryParam(t *testing.T) {
	b := mustParse(t, "http://h/?a=1&b=2&a=3")

	b, err := b.RemoveQueryParam("a")
	require.NoError(t, err)
	assert.Equal(t, "b=2&a=3", b.URL().RawQuery)
	assert.True(t, b.HasQueryParam("a"))
	assert.False(t, b.HasQueryParam("c"))

	_, err = b.RemoveQueryParam("c")
	assert.Error(t, err)
}

func TestBuilder_HasQueryParamEncodedName(t *testing.T) {
	b := mustParse(t, "http://h/")

	var params Params
	b, err := b.AddQueryParams(params.Add("a b", "1"))
	require.NoError(t, err)
	assert.Equal(t, "a%20b=1", b.URL().RawQuery)
	assert.True(t, b.HasQueryParam("a b"))
	assert.True(t, b.HasQueryParam("a%20b"))

	b, err = b.RemoveQueryParam("a b")
	require.NoError(t, err)
	assert.False(t, b.HasQueryParam("a b"))
}

func TestExpand_MissingParameter(t *testing.T) {
	_, err := Expand("users/{id}/posts/{post}", map[string]any{"id": 1})
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, err.Error(), "post")
}

func TestParams_GroupingAndNames(t *testing.T) {
	var p Params
	p = p.Add("b", 1).Add("a", []any{"x", NoValue}).Add("b", 2)

	assert.Equal(t, []string{"b", "a"}, p.Names())
	assert.Equal(t, []string{"1", "2"}, p.Get("b"))
	assert.Equal(t, map[string][]string{"a": {"x", ""}, "b": {"1", "2"}}, p.Grouped())
}
