package eval

import (
	"errors"

	"github.com/mattn/go-shellwords"
)

var errOperator = errors.New("unquoted shell operator; quote arguments containing | ; & < >")

// Split breaks a line into tokens with shell quoting rules. Single quotes
// keep their contents literally, a backslash escapes the next character, and
// "" yields an empty token. Variables and command substitution are not
// expanded, so recipe parameters such as $1 survive.
func Split(line string) ([]string, error) {
	p := shellwords.NewParser()
	tokens, err := p.Parse(line)
	if err != nil {
		return nil, err
	}
	if p.Position >= 0 {
		return nil, errOperator
	}
	return tokens, nil
}
