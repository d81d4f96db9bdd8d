package mdstream

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const maxFrontMatterProbeBytes = 64 * 1024

// FrontMatter is a metadata block found at the very start of a stream,
// delimited by "---" (YAML), "+++" (TOML) or ";;;" (JSON) lines.
type FrontMatter struct {
	Delimiter string
	// Raw is the block content without the delimiter lines.
	Raw []byte
}

// ErrUnsupportedFrontMatter is returned by Decode for TOML blocks.
var ErrUnsupportedFrontMatter = errors.New("front matter: unsupported format")

// Decode unmarshals a YAML or JSON block into v.
func (fm FrontMatter) Decode(v any) error {
	switch fm.Delimiter {
	case "---", ";;;":
		// JSON is a subset of YAML
		if err := yaml.Unmarshal(fm.Raw, v); err != nil {
			return fmt.Errorf("front matter: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFrontMatter, fm.Delimiter)
	}
}

// Fields decodes the block into a map. An empty block yields an empty map.
func (fm FrontMatter) Fields() (map[string]any, error) {
	var fields map[string]any
	if len(bytes.TrimSpace(fm.Raw)) > 0 {
		if err := fm.Decode(&fields); err != nil {
			return nil, err
		}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// frontMatterFilter holds back the start of a stream until it is known
// whether it opens with front matter, and strips the block if so.
type frontMatterFilter struct {
	stage   frontMatterStage
	held    []byte
	heldArr [4096]byte
	// scan is the offset of the first line not yet classified.
	scan  int
	delim string
	// body is the offset of the first line after the opening delimiter.
	body  int
	found func(FrontMatter)
}

type frontMatterStage uint8

const (
	stageOpening frontMatterStage = iota
	stageFirstLine
	stageBody
	stageDone
)

var frontMatterDelimiters = [...]string{"---", "+++", ";;;"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (f *frontMatterFilter) reset(found func(FrontMatter)) {
	f.stage = stageOpening
	f.held = f.heldArr[:0]
	f.scan = 0
	f.delim = ""
	f.body = 0
	f.found = found
}

// process returns the part of chunk that is ready for the parser; nil while
// the start of the stream is undecided.
func (f *frontMatterFilter) process(chunk []byte) []byte {
	if f.stage == stageDone || len(chunk) == 0 {
		return chunk
	}
	f.held = append(f.held, chunk...)
	return f.advance(false)
}

// finish releases whatever is still held at the end of the stream.
func (f *frontMatterFilter) finish() []byte {
	if f.stage == stageDone {
		return nil
	}
	return f.advance(true)
}

func (f *frontMatterFilter) advance(eof bool) []byte {
	for {
		line, next, ok := heldLine(f.held, f.scan, eof)
		if !ok {
			if eof || len(f.held) > maxFrontMatterProbeBytes {
				return f.release(0)
			}
			return nil
		}
		switch f.stage {
		case stageOpening:
			f.delim = delimiterOf(bytes.TrimSpace(bytes.TrimPrefix(line, utf8BOM)))
			if f.delim == "" {
				return f.release(0)
			}
			f.body = next
			f.stage = stageFirstLine
		case stageFirstLine:
			if !looksLikeMetadata(line) {
				return f.release(0)
			}
			f.stage = stageBody
		case stageBody:
			if string(bytes.TrimSpace(line)) == f.delim {
				if f.found != nil {
					raw := append([]byte(nil), f.held[f.body:f.scan]...)
					f.found(FrontMatter{Delimiter: f.delim, Raw: raw})
				}
				return f.release(next)
			}
		}
		f.scan = next
	}
}

// release ends filtering and returns the held bytes from offset from on.
func (f *frontMatterFilter) release(from int) []byte {
	out := f.held[from:]
	f.held = nil
	f.stage = stageDone
	return out
}

// heldLine returns the line starting at start without its newline. The last
// line only counts as complete at the end of the stream.
func heldLine(src []byte, start int, eof bool) ([]byte, int, bool) {
	if start >= len(src) {
		return nil, start, false
	}
	if i := bytes.IndexByte(src[start:], '\n'); i >= 0 {
		return src[start : start+i], start + i + 1, true
	}
	if eof {
		return src[start:], len(src), true
	}
	return nil, start, false
}

func delimiterOf(line []byte) string {
	for _, d := range frontMatterDelimiters {
		if string(line) == d {
			return d
		}
	}
	return ""
}

// looksLikeMetadata reports whether the first line of a candidate block reads
// like a key/value pair or the start of a JSON document.
func looksLikeMetadata(line []byte) bool {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return false
	}
	return line[0] == '{' || line[0] == '[' || bytes.ContainsAny(line, ":=")
}
