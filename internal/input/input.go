package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/berkguzel/pstar/internal/errors"
)

// Read returns the policy text from path, or drains stdin when path is empty.
func Read(path string, stdin io.Reader) (string, error) {
	if path != "" {
		return ReadFile(path)
	}
	return ReadLines(stdin)
}

// ReadFile reads the whole file at path.
func ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewInputError(fmt.Sprintf("File %s not found", path), errors.ErrFileNotFound)
		}
		return "", errors.NewInputError(fmt.Sprintf("Can't read from %s", path), err)
	}
	if info.IsDir() {
		return "", errors.NewInputError(fmt.Sprintf("%s is a directory", path), errors.ErrIsDirectory)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			err = errors.ErrFileUnreadable
		}
		return "", errors.NewInputError(fmt.Sprintf("Can't read from %s", path), err)
	}
	return string(data), nil
}

// ReadLines drains r until EOF, terminating every line with a newline.
// CRLF line endings are normalized to LF.
func ReadLines(r io.Reader) (string, error) {
	var b strings.Builder
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			b.WriteString(strings.TrimSuffix(line, "\r"))
			b.WriteByte('\n')
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.NewInputError("failed to read from stdin", err)
		}
	}
	return b.String(), nil
}
