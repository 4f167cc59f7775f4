package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// loadProgram reads the program from path, or from a line of in when path is
// empty or the file holds no code. Line breaks are removed either way since
// jump tables index the program as one line.
func loadProgram(path string, in *bufio.Reader, prompt io.Writer, interactive bool) (string, error) {
	var code string
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cannot read program: %w", err)
		}
		code = stripLineBreaks(string(data))
	}
	if code != "" {
		return code, nil
	}

	if interactive {
		fmt.Fprint(prompt, "Enter code: ")
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cannot read program: %w", err)
	}
	code = stripLineBreaks(line)
	if code == "" {
		return "", errors.New("no program given")
	}
	return code, nil
}

func stripLineBreaks(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
