package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
)

// ParsedCommand is the dispatcher's view of one command: lower-cased verb,
// positional arguments, and case-insensitive named arguments.
type ParsedCommand struct {
	// Raw is the trimmed command text as received
	Raw string

	// ClientID identifies the originating connection
	ClientID string

	// ReceivedAt is when the reader accepted the command
	ReceivedAt time.Time

	// Verb is the lower-cased first token; empty for empty input
	Verb string

	// Args are the positional arguments in order
	Args []string

	// Named holds --name=value / -n=value arguments, keyed lower-case
	Named map[string]string
}

// parseCommand splits raw command text into verb, positional arguments, and
// named arguments.
//
// Tokens are split shell-style so quoted arguments survive ("say 'hello
// world'" yields one positional). A token prefixed with one or two dashes
// and containing '=' becomes a named argument and leaves the positional
// list; a bare dashed token such as --verbose becomes a named flag with
// value "true", except that tokens parsing as negative numbers stay
// positional. Malformed quoting falls back to whitespace splitting.
func parseCommand(cmd *Command) *ParsedCommand {
	parsed := &ParsedCommand{
		Raw:        cmd.Text,
		ClientID:   cmd.ClientID,
		ReceivedAt: cmd.ReceivedAt,
		Named:      make(map[string]string),
	}

	tokens, err := shellwords.SplitPosix(cmd.Text)
	if err != nil {
		tokens = strings.Fields(cmd.Text)
	}
	if len(tokens) == 0 {
		return parsed
	}

	parsed.Verb = strings.ToLower(tokens[0])

	for _, token := range tokens[1:] {
		if !strings.HasPrefix(token, "-") {
			parsed.Args = append(parsed.Args, token)
			continue
		}

		name := strings.TrimPrefix(strings.TrimPrefix(token, "-"), "-")
		if name == "" {
			parsed.Args = append(parsed.Args, token)
			continue
		}

		if idx := strings.Index(name, "="); idx >= 0 {
			parsed.Named[strings.ToLower(name[:idx])] = name[idx+1:]
			continue
		}

		// Negative numbers look dashed but are positional.
		if _, err := strconv.ParseFloat(token, 64); err == nil {
			parsed.Args = append(parsed.Args, token)
			continue
		}

		parsed.Named[strings.ToLower(name)] = "true"
	}

	return parsed
}

// NamedInt returns the named argument as an integer, or the default when the
// argument is absent. A present but malformed value is a parse error local
// to the calling handler.
func (p *ParsedCommand) NamedInt(name string, def int) (int, error) {
	raw, ok := p.Named[strings.ToLower(name)]
	if !ok {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("argument --%s=%q is not an integer", name, raw)
	}
	return value, nil
}

// NamedBool returns the named argument as a boolean; a bare flag counts as
// true. Absent arguments return false.
func (p *ParsedCommand) NamedBool(name string) bool {
	raw, ok := p.Named[strings.ToLower(name)]
	if !ok {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}
