package eventhub

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// frame is one named text event from the push channel: an event name and
// its string-serialized payload.
type frame struct {
	event string
	data  []byte
}

// sseReader incrementally parses text/event-stream frames. The server side
// writes "event: <kind>\ndata: <json>\n\n" per event.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// Next returns the next complete frame, or io.EOF when the stream ends.
func (r *sseReader) Next() (frame, error) {
	var event string
	var data bytes.Buffer

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			// Blank line dispatches the accumulated frame
			if event != "" || data.Len() > 0 {
				return frame{event: event, data: data.Bytes()}, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / keep-alive
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			field, value = line, ""
		}
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return frame{}, err
	}
	return frame{}, io.EOF
}
