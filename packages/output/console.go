package output

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"

	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
)

// Formatter prints requests and their outcomes.
type Formatter interface {
	FormatRequest(req *http.Request)
	FormatExchange(ex *Exchange)
	FormatError(err error)
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatRequest prints the assembled request, as used by --dry-run. The body
// is shown only when it can be replayed.
func (f *ConsoleFormatter) FormatRequest(req *http.Request) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "%s %s\n", bold(req.Method), req.URL.String())
	for _, k := range sortedHeaderKeys(req.Header) {
		for _, v := range req.Header[k] {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(k), v)
		}
	}
	if req.GetBody == nil {
		if req.Body != nil && req.Body != http.NoBody {
			fmt.Fprintf(f.writer, "\n<streamed body>\n")
		}
		return
	}
	body, err := req.GetBody()
	if err != nil {
		return
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return
	}
	fmt.Fprintf(f.writer, "\n%s\n", Render(data))
}

func (f *ConsoleFormatter) FormatExchange(ex *Exchange) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	status := statusColor(ex.StatusCode).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s %s\n", status(ex.Status), bold(ex.Method+" "+ex.URL), cyan(fmt.Sprintf("(%dms)", ex.Duration.Milliseconds())))

	if f.verbose {
		for _, k := range sortedHeaderKeys(ex.Headers) {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(k), strings.Join(ex.Headers[k], ", "))
		}
	}

	if text := Render(ex.Value); text != "" {
		fmt.Fprintf(f.writer, "\n%s\n", text)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)

	if statusErr, ok := hithttp.AsStatusError(err); ok && len(statusErr.Body) > 0 {
		body := Render(statusErr.Data)
		if statusErr.Data == nil {
			body = Render(statusErr.Body)
		}
		fmt.Fprintf(f.writer, "\n%s\n", body)
	}
	if parseErr, ok := asParseError(err); ok && f.verbose {
		fmt.Fprintf(f.writer, "\n%s\n", Render(parseErr.Raw))
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgRed)
	case code >= 300:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgGreen)
}
