// Package lines implements line-addressed reads and rewrites of text files.
//
// Line numbers are 1-based. A line is counted only when its terminating
// '\n' is present, so a final fragment without a trailing newline is not
// addressable by ReadLine, InsertLine or DeleteLine.
package lines

import (
	"bufio"
	"bytes"
	"io"

	ferrors "filemgr/internal/errors"
)

// CountLines returns the number of '\n' bytes in content.
func CountLines(content []byte) int {
	return bytes.Count(content, []byte{'\n'})
}

// ValidateLineNumber fails with LineOutOfRange unless 1 <= n <= CountLines(content).
func ValidateLineNumber(content []byte, n int) error {
	return validate("validate line", "", n, CountLines(content))
}

func validate(op, name string, n, count int) error {
	if n < 1 || n > count {
		return ferrors.LineOutOfRange(op, name, n, count)
	}
	return nil
}

func countReader(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	count := 0
	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

// eachLine calls fn for every line of r, including its '\n' when present.
// The unterminated tail, if any, is passed with a line number one past the
// last counted line.
func eachLine(r io.Reader, fn func(lineNo int, line []byte) error) error {
	br := bufio.NewReader(r)
	lineNo := 1
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if ferr := fn(lineNo, line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		lineNo++
	}
}
