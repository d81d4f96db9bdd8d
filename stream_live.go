package mdstream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

const readChunkSize = 4096

var readerPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, readChunkSize)
	},
}

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, readChunkSize)
		return &b
	},
}

var ansiWriterPool = sync.Pool{
	New: func() any {
		return &ANSIWriter{}
	},
}

// Format selects the output of Render.
type Format uint8

const (
	FormatANSI Format = iota
	FormatHTML
	FormatLog
)

func (f Format) String() string {
	switch f {
	case FormatANSI:
		return "ansi"
	case FormatHTML:
		return "html"
	case FormatLog:
		return "log"
	}
	return "unknown"
}

// ParseFormat parses ansi|html|log.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ansi", "term", "terminal":
		return FormatANSI, nil
	case "html":
		return FormatHTML, nil
	case "log", "events":
		return FormatLog, nil
	}
	return 0, fmt.Errorf("unknown format %q: expected ansi|html|log", s)
}

// Stats summarizes a Parse or Render call.
type Stats struct {
	Bytes       int64
	Chunks      int
	Tokens      int
	FrontMatter bool
	Duration    time.Duration
}

// countingRenderer forwards to a Renderer while counting opened nodes.
type countingRenderer[T any] struct {
	next  Renderer[T]
	stats *Stats
}

func (c countingRenderer[T]) AddToken(ctx T, t Token) {
	c.stats.Tokens++
	c.next.AddToken(ctx, t)
}

func (c countingRenderer[T]) EndToken(ctx T, t Token)             { c.next.EndToken(ctx, t) }
func (c countingRenderer[T]) AddText(ctx T, text string)          { c.next.AddText(ctx, text) }
func (c countingRenderer[T]) SetAttr(ctx T, a Attr, value string) { c.next.SetAttr(ctx, a, value) }

// ParseRequest configures Parse.
type ParseRequest[T any] struct {
	Reader   io.Reader
	Renderer Renderer[T]
	Context  T
	Options  []Option
	// Stats, when set, is overwritten with a summary of the call.
	Stats *Stats
}

// RenderRequest configures Render.
type RenderRequest struct {
	Reader io.Reader
	Writer io.Writer
	Format Format
	// Width is the wrap column of ANSI output; 0 disables wrapping.
	Width   int
	Theme   Theme
	Options []Option
	Stats   *Stats
}

// Parse streams Markdown from Reader into Renderer. Chunks are handed to the
// parser as they are read; front matter at the start of the stream is
// stripped and reported through WithFrontMatter.
func Parse[T any](req ParseRequest[T]) error {
	if req.Reader == nil {
		return fmt.Errorf("parse: reader is nil")
	}
	if req.Renderer == nil {
		return fmt.Errorf("parse: renderer is nil")
	}
	start := time.Now()
	cfg := newConfig(req.Options)
	var r Renderer[T] = req.Renderer
	if req.Stats != nil {
		*req.Stats = Stats{}
		r = countingRenderer[T]{next: r, stats: req.Stats}
	}
	p := NewParser(r, req.Context, req.Options...)
	err := feedStream(req.Reader, p, cfg, req.Stats)
	if req.Stats != nil {
		req.Stats.Duration = time.Since(start)
	}
	return err
}

func feedStream[T any](src io.Reader, p *Parser[T], cfg config, stats *Stats) error {
	if cfg.normalize {
		src = norm.NFC.Reader(src)
	}
	reader := readerPool.Get().(*bufio.Reader)
	reader.Reset(src)
	bufp := chunkPool.Get().(*[]byte)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
		chunkPool.Put(bufp)
	}()
	buf := *bufp

	var fm frontMatterFilter
	fm.reset(func(f FrontMatter) {
		if stats != nil {
			stats.FrontMatter = true
		}
		if cfg.frontMatter != nil {
			cfg.frontMatter(f)
		}
	})
	var v validator
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if stats != nil {
				stats.Bytes += int64(n)
				stats.Chunks++
			}
			if cfg.strict {
				if verr := v.write(chunk); verr != nil {
					return fmt.Errorf("parse: %w", verr)
				}
			}
			chunk = stripControl(chunk)
			if filtered := fm.process(chunk); len(filtered) > 0 {
				if _, werr := p.Write(filtered); werr != nil {
					return fmt.Errorf("parse: %w", werr)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("parse: read: %w", err)
		}
	}
	if cfg.strict {
		if verr := v.close(); verr != nil {
			return fmt.Errorf("parse: %w", verr)
		}
	}
	if trailing := fm.finish(); len(trailing) > 0 {
		if _, err := p.Write(trailing); err != nil {
			return fmt.Errorf("parse: %w", err)
		}
	}
	p.Finish()
	if err := p.err(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

// Render parses Markdown from Reader and writes it to Writer in Format.
func Render(req RenderRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("render: reader is nil")
	}
	if req.Writer == nil {
		return fmt.Errorf("render: writer is nil")
	}
	switch req.Format {
	case FormatANSI:
		w := ansiWriterPool.Get().(*ANSIWriter)
		w.reset(req.Writer, req.Width, req.Theme, newConfig(req.Options))
		err := Parse(ParseRequest[*ANSIWriter]{
			Reader:   req.Reader,
			Renderer: ANSIRenderer{},
			Context:  w,
			Options:  req.Options,
			Stats:    req.Stats,
		})
		if ferr := w.Flush(); err == nil && ferr != nil {
			err = fmt.Errorf("render: %w", ferr)
		}
		w.reset(io.Discard, 0, req.Theme, config{})
		ansiWriterPool.Put(w)
		return err
	case FormatHTML:
		w := NewHTMLWriter(req.Writer)
		err := Parse(ParseRequest[*HTMLWriter]{
			Reader:   req.Reader,
			Renderer: HTMLRenderer{},
			Context:  w,
			Options:  req.Options,
			Stats:    req.Stats,
		})
		if ferr := w.Flush(); err == nil && ferr != nil {
			err = fmt.Errorf("render: %w", ferr)
		}
		return err
	case FormatLog:
		return Parse(ParseRequest[*LogWriter]{
			Reader:   req.Reader,
			Renderer: LogRenderer{},
			Context:  NewLogWriter(req.Writer, req.Options...),
			Options:  req.Options,
			Stats:    req.Stats,
		})
	}
	return fmt.Errorf("render: unsupported format %v", req.Format)
}

// ParseDOM parses Markdown from r into an HTML node tree.
func ParseDOM(r io.Reader, opts ...Option) (*DOM, error) {
	dom := NewDOM()
	err := Parse(ParseRequest[*DOM]{
		Reader:   r,
		Renderer: DOMRenderer{},
		Context:  dom,
		Options:  opts,
	})
	return dom, err
}

// RenderString renders src as an HTML fragment.
func RenderString(src string, opts ...Option) (string, error) {
	var b strings.Builder
	err := Render(RenderRequest{
		Reader:  strings.NewReader(src),
		Writer:  &b,
		Format:  FormatHTML,
		Options: opts,
	})
	return b.String(), err
}
