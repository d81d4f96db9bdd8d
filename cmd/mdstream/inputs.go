package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/mdstream"
)

// inputs reads the documents named on the command line one after another.
// A document is opened only once the previous one is exhausted, so a remote
// document starts rendering while later ones are not fetched yet.
type inputs struct {
	ctx   context.Context
	names []string
	cur   io.ReadCloser
}

// openInputs returns stdin when args is empty.
func openInputs(ctx context.Context, args []string) (io.ReadCloser, error) {
	if len(args) == 0 {
		return io.NopCloser(os.Stdin), nil
	}
	for _, name := range args {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("empty input argument")
		}
	}
	return &inputs{ctx: ctx, names: args}, nil
}

func (in *inputs) Read(p []byte) (int, error) {
	for {
		if in.cur == nil {
			if len(in.names) == 0 {
				return 0, io.EOF
			}
			rc, err := openInput(in.ctx, in.names[0])
			if err != nil {
				return 0, err
			}
			in.names = in.names[1:]
			in.cur = rc
		}
		n, err := in.cur.Read(p)
		if err == io.EOF {
			_ = in.cur.Close()
			in.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (in *inputs) Close() error {
	in.names = nil
	if in.cur == nil {
		return nil
	}
	err := in.cur.Close()
	in.cur = nil
	return err
}

// openInput opens "-" (stdin), an http(s) or file URL, or a path.
func openInput(ctx context.Context, name string) (io.ReadCloser, error) {
	name = strings.TrimSpace(name)
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	u, err := url.Parse(name)
	if err != nil || u.Scheme == "" {
		return openFile(expandPath(name))
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return mdstream.OpenURL(ctx, nil, name)
	case "file":
		path := u.Path
		if path == "" {
			path = u.Host
		}
		return openFile(path)
	}
	return openFile(expandPath(name))
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// createOutput returns stdout for an empty path, otherwise a new file whose
// parent directories are created as needed.
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return stdout, func() error { return nil }, nil
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// expandPath resolves a leading "~" and makes path absolute.
func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || os.IsPathSeparator(rest[0])) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
