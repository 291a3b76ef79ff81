package streamjson

import "bytes"

// LineFramer accumulates raw stdout bytes and yields completed lines.
// The trailing partial line is retained across writes and surfaced by Flush
// when the stream closes.
type LineFramer struct {
	// buffer holds bytes after the last newline.
	buffer []byte
}

// Push appends a chunk of bytes and returns the completed, trimmed,
// non-empty lines it produced.
func (f *LineFramer) Push(chunk []byte) [][]byte {
	f.buffer = append(f.buffer, chunk...)

	var lines [][]byte
	for {
		index := bytes.IndexByte(f.buffer, '\n')
		if index < 0 {
			return lines
		}
		line := bytes.TrimSpace(f.buffer[:index])
		f.buffer = f.buffer[index+1:]
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
}

// Flush returns the remaining buffered bytes as a final line, if any.
func (f *LineFramer) Flush() ([]byte, bool) {
	line := bytes.TrimSpace(f.buffer)
	f.buffer = nil
	if len(line) == 0 {
		return nil, false
	}
	return line, true
}
