package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxInputSize bounds a single read of standard input.
const maxInputSize = 10 * 1024 * 1024

// StdinReader reads notify requests from standard input.
//
// Three formats are accepted: a JSON array of requests, one JSON request per
// line, or plain text where each non-empty line is a message.
type StdinReader struct {
	reader io.Reader
}

// NewStdinReader creates a StdinReader reading from os.Stdin.
func NewStdinReader() *StdinReader {
	return &StdinReader{reader: os.Stdin}
}

// NewStdinReaderWithReader creates a StdinReader with a custom reader.
func NewStdinReaderWithReader(r io.Reader) *StdinReader {
	return &StdinReader{reader: r}
}

// Name returns the source identifier.
func (r *StdinReader) Name() string {
	return "stdin"
}

// Read reads every request. Requests are validated for kind and actions;
// an invalid request fails the whole read.
func (r *StdinReader) Read(ctx context.Context) ([]Request, error) {
	data, err := io.ReadAll(io.LimitReader(r.reader, maxInputSize+1))
	if err != nil {
		return nil, &InputError{Source: r.Name(), Message: "failed to read input", Err: err}
	}
	if len(data) > maxInputSize {
		return nil, &InputError{Source: r.Name(), Message: "input too large"}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var requests []Request
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &requests); err != nil {
			return nil, &InputError{Source: r.Name(), Message: "failed to parse JSON input", Err: err}
		}
	case '{':
		requests, err = r.readLines(ctx, trimmed, func(line string) (Request, error) {
			var req Request
			err := json.Unmarshal([]byte(line), &req)
			return req, err
		})
	default:
		requests, err = r.readLines(ctx, trimmed, func(line string) (Request, error) {
			return Request{Message: line}, nil
		})
	}
	if err != nil {
		return nil, err
	}

	for i := range requests {
		requests[i].Message = sanitizeString(requests[i].Message)
		if err := validate(requests[i]); err != nil {
			return nil, &InputError{Source: r.Name(), Message: fmt.Sprintf("invalid request %d", i+1), Err: err}
		}
	}
	return requests, nil
}

func (r *StdinReader) readLines(ctx context.Context, data []byte, parse func(string) (Request, error)) ([]Request, error) {
	var requests []Request

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxInputSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		req, err := parse(text)
		if err != nil {
			return nil, &InputError{Source: r.Name(), Line: line, Message: "failed to parse request", Err: err}
		}
		requests = append(requests, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, &InputError{Source: r.Name(), Message: "failed to read input", Err: err}
	}
	return requests, nil
}

func validate(req Request) error {
	if _, err := req.ParsedKind(); err != nil {
		return err
	}

	pairs := req.ActionPairs()
	seen := make(map[string]bool, len(req.Actions))
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i]
		if key == "" {
			return fmt.Errorf("action %d has no key or label", i/2)
		}
		if seen[key] {
			return fmt.Errorf("duplicate action key %q", key)
		}
		seen[key] = true
	}
	return nil
}

// sanitizeString replaces control characters other than newline and tab.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
