package utils

import "strings"

func ShellEscape(value string) string {
	if value == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(value, "'", "'\"'\"'")
	return "'" + escaped + "'"
}

// ShellJoin escapes each argument and joins them into one command line.
func ShellJoin(args ...string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = ShellEscape(arg)
	}
	return strings.Join(parts, " ")
}
