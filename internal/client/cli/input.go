package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Replaced in tests.
var readPassword = term.ReadPassword

// GetSimpleText writes "prompt: " to w and returns the next trimmed line. A
// final line without a newline is accepted.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt+": ")
	line, err := reader.ReadString('\n')
	switch {
	case err == nil, errors.Is(err, io.EOF) && line != "":
		return strings.TrimSpace(line), nil
	default:
		return "", err
	}
}

// GetPassword reads a passphrase from the terminal with echo off. The caller
// owns the slice and should wipe it.
func GetPassword(prompt string, w io.Writer) ([]byte, error) {
	fmt.Fprint(w, prompt+": ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return pw, err
}

// GetOptional shows the current value in brackets. An empty answer keeps
// it and reports changed=false.
func GetOptional(reader *bufio.Reader, prompt, current string, w io.Writer) (v string, changed bool, err error) {
	v, err = GetSimpleText(reader, fmt.Sprintf("%s [%s]", prompt, current), w)
	if err != nil || v == "" {
		return current, false, err
	}
	return v, true, nil
}
