package subtitles

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// GenerateScheme prefixes download refs that are rendered locally instead of fetched.
const GenerateScheme = "generate:"

// Generate ref kinds.
const (
	KindPlaceholder = "placeholder"
	KindSinhala     = "sinhala"
)

// GenerateRef is the decoded form of a "generate:<kind>?<params>" download ref.
type GenerateRef struct {
	Kind     string
	Movie    string
	Language string
	Name     string
	Team     string
	Format   string
}

// BuildGenerateRef encodes r as a download ref.
func BuildGenerateRef(r GenerateRef) string {
	params := url.Values{}
	params.Set("movie", r.Movie)
	params.Set("lang", r.Language)
	params.Set("name", r.Name)
	if r.Team != "" {
		params.Set("team", r.Team)
	}
	params.Set("format", normalizeFormat(r.Format))
	return GenerateScheme + r.Kind + "?" + params.Encode()
}

// IsGenerateRef reports whether ref must be rendered locally.
func IsGenerateRef(ref string) bool {
	return strings.HasPrefix(ref, GenerateScheme)
}

// ParseGenerateRef decodes a ref produced by BuildGenerateRef.
func ParseGenerateRef(ref string) (GenerateRef, error) {
	if !IsGenerateRef(ref) {
		return GenerateRef{}, fmt.Errorf("not a generate ref: %q", ref)
	}
	kind, rawQuery, _ := strings.Cut(strings.TrimPrefix(ref, GenerateScheme), "?")
	if _, ok := templates[kind]; !ok {
		return GenerateRef{}, fmt.Errorf("unknown generate kind %q", kind)
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return GenerateRef{}, fmt.Errorf("failed to parse generate ref: %w", err)
	}
	return GenerateRef{
		Kind:     kind,
		Movie:    params.Get("movie"),
		Language: params.Get("lang"),
		Name:     params.Get("name"),
		Team:     params.Get("team"),
		Format:   normalizeFormat(params.Get("format")),
	}, nil
}

func normalizeFormat(format string) string {
	if strings.EqualFold(format, "vtt") {
		return "vtt"
	}
	return "srt"
}

type cue struct {
	Index int
	Start string
	End   string
	Text  string
}

var templates = map[string][]string{
	KindPlaceholder: {
		"{{.Name}}",
		"Uploaded by {{.Team}}",
		"Subtitles for {{.Movie}} are not available from any provider right now.",
		"This placeholder was generated locally. Please try again later.",
	},
	KindSinhala: {
		"{{.Movie}} - Sinhala subtitles",
		"Translated by {{.Team}}",
		"Full Sinhala subtitles are published on the {{.Team}} website.",
	},
}

var (
	srtFile = template.Must(template.New("srt").Parse(
		`{{range .}}{{.Index}}
{{.Start}},000 --> {{.End}},000
{{.Text}}

{{end}}`))
	vttFile = template.Must(template.New("vtt").Parse(
		`WEBVTT

{{range .}}{{.Start}}.000 --> {{.End}}.000
{{.Text}}

{{end}}`))
)

// Render produces the subtitle file for a generate ref. The format is taken
// from the ref, with the file extension as the second return value.
func Render(r GenerateRef) ([]byte, string, error) {
	lines, ok := templates[r.Kind]
	if !ok {
		return nil, "", fmt.Errorf("unknown generate kind %q", r.Kind)
	}

	cues := make([]cue, 0, len(lines))
	for i, line := range lines {
		text, err := renderLine(line, r)
		if err != nil {
			return nil, "", err
		}
		cues = append(cues, cue{
			Index: i + 1,
			Start: clock(i * 5),
			End:   clock(i*5 + 4),
			Text:  text,
		})
	}

	format := normalizeFormat(r.Format)
	file := srtFile
	if format == "vtt" {
		file = vttFile
	}

	var buf bytes.Buffer
	if err := file.Execute(&buf, cues); err != nil {
		return nil, "", fmt.Errorf("failed to render %s: %w", format, err)
	}
	return buf.Bytes(), format, nil
}

func renderLine(line string, r GenerateRef) (string, error) {
	tmpl, err := template.New("line").Parse(line)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
