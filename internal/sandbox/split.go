package sandbox

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote reports a command line with an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote in command")

// Split parses a command line into argv without invoking a shell.
// Single quotes preserve everything literally; inside double quotes
// and outside quotes a backslash escapes the next rune. There is no
// variable expansion, globbing, or redirection.
func Split(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)
	escaped := false
	started := false

	for _, ch := range line {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false

		case ch == '\\' && (!inQuotes || quoteChar == '"'):
			// Inside single quotes a backslash is literal.
			escaped = true
			started = true

		case (ch == '"' || ch == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = ch
			started = true

		case ch == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0

		case unicode.IsSpace(ch) && !inQuotes:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}

		default:
			current.WriteRune(ch)
			started = true
		}
	}

	if inQuotes || escaped {
		return nil, ErrUnterminatedQuote
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}

// SplitCommand parses a command line into a Command.
func SplitCommand(line string) (Command, error) {
	args, err := Split(line)
	if err != nil {
		return Command{}, err
	}
	if len(args) == 0 {
		return Command{}, errors.New("empty command")
	}
	return Command{Path: args[0], Args: args[1:]}, nil
}
