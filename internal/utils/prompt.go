package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

func Prompt(message string) (string, error) {
	return PromptFrom(os.Stdin, os.Stdout, message)
}

func PromptFrom(in io.Reader, out io.Writer, message string) (string, error) {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "%s: ", message)
	text, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
