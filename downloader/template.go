package downloader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var forbiddenNames = regexp.MustCompile(`[\\/<>:"|?*]`)

// TemplateFields returns the template substitution values for meta.
// List-valued fields are joined with commas.
func TemplateFields(meta TrackMetadata) map[string]string {
	return map[string]string{
		"title":       meta.Title,
		"artist":      strings.Join(meta.Artists, ","),
		"albumartist": strings.Join(meta.AlbumArtists, ","),
		"album":       meta.Album,
		"tracknumber": strconv.Itoa(meta.TrackNumber),
		"date":        strconv.Itoa(meta.ReleaseYear),
		"copyright":   meta.Copyright,
		"discnumber":  strconv.Itoa(meta.DiscNumber),
	}
}

// RenderTemplate substitutes {field} placeholders in tmpl. "{{" and "}}" are
// literal braces and a placeholder may carry a [[fill]align][width] spec,
// e.g. {tracknumber:0>2}.
func RenderTemplate(tmpl string, fields map[string]string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			out.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			out.WriteByte('}')
			i++
		case c == '}':
			return "", fmt.Errorf("single '}' at offset %d in template %q", i, tmpl)
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed '{' at offset %d in template %q", i, tmpl)
			}
			value, err := renderField(tmpl[i+1:i+end], fields)
			if err != nil {
				return "", err
			}
			out.WriteString(value)
			i += end
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}

func renderField(placeholder string, fields map[string]string) (string, error) {
	name, spec, _ := strings.Cut(placeholder, ":")
	value, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("unknown template field %q", name)
	}
	if spec == "" {
		return value, nil
	}
	return pad(value, spec)
}

func pad(value, spec string) (string, error) {
	fill, align := " ", byte('<')
	rest := spec
	if r, size := utf8.DecodeRuneInString(spec); size > 0 && size < len(spec) && isAlign(spec[size]) {
		fill, align, rest = string(r), spec[size], spec[size+1:]
	} else if len(spec) > 0 && isAlign(spec[0]) {
		align, rest = spec[0], spec[1:]
	}

	width, err := strconv.Atoi(rest)
	if err != nil || width < 0 {
		return "", fmt.Errorf("invalid format spec %q", spec)
	}
	missing := width - utf8.RuneCountInString(value)
	if missing <= 0 {
		return value, nil
	}

	switch align {
	case '>':
		return strings.Repeat(fill, missing) + value, nil
	case '^':
		left := missing / 2
		return strings.Repeat(fill, left) + value + strings.Repeat(fill, missing-left), nil
	default:
		return value + strings.Repeat(fill, missing), nil
	}
}

func isAlign(c byte) bool {
	return c == '<' || c == '>' || c == '^'
}

// ValidateTemplate reports placeholder errors in tmpl without any track at hand
func ValidateTemplate(tmpl string) error {
	_, err := RenderTemplate(tmpl, TemplateFields(TrackMetadata{}))
	return err
}

// BuildOutputPath renders the directory and filename templates for meta and
// appends the codec extension. Path separators and other characters that are
// invalid in file names are replaced inside substituted values only.
func BuildOutputPath(outputTemplate, filenameTemplate string, meta TrackMetadata, codec Codec) (string, error) {
	fields := TemplateFields(meta)
	for k, v := range fields {
		fields[k] = forbiddenNames.ReplaceAllString(v, "_")
	}

	dir, err := RenderTemplate(outputTemplate, fields)
	if err != nil {
		return "", fmt.Errorf("output template: %w", err)
	}
	name, err := RenderTemplate(filenameTemplate, fields)
	if err != nil {
		return "", fmt.Errorf("filename template: %w", err)
	}
	return filepath.Join(dir, name) + codec.Extension(), nil
}
