// Package command parses the short chat messages users send to annotate
// segments:
//
//	720575941535411994?              list annotations
//	720575941535411994??             list annotations with details
//	720575941535411994!annotation    post an annotation
//	720575941535411994-annotation    delete an annotation
//	findids annotation               segments carrying an annotation
//	findnum annotation               number of such segments
//	help
package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is what a message asks for.
type Op int

const (
	OpHelp Op = iota
	OpQuery
	OpPost
	OpDelete
	OpFindIDs
	OpFindCount
)

func (o Op) String() string {
	switch o {
	case OpHelp:
		return "help"
	case OpQuery:
		return "query"
	case OpPost:
		return "post"
	case OpDelete:
		return "delete"
	case OpFindIDs:
		return "find_ids"
	case OpFindCount:
		return "find_count"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Command is a parsed message.
type Command struct {
	Op         Op
	Segment    int64  // query, post, delete
	Details    bool   // query with "??"
	Annotation string // post, delete, find
}

// ParseError explains why a message could not be understood.
type ParseError struct {
	Message string
	Reason  string
}

func (e *ParseError) Error() string { return e.Reason }

// Command characters, in no particular order; the earliest one in the
// message wins.
const commandChars = "?!-"

// Normalize undoes what chat clients do to typed text: runs of spaces are
// collapsed and HTML-escaped ">" and the ellipsis character are restored.
func Normalize(msg string) string {
	for strings.Contains(msg, "  ") {
		msg = strings.ReplaceAll(msg, "  ", " ")
	}
	msg = strings.ReplaceAll(msg, "&gt;", ">")
	msg = strings.ReplaceAll(msg, "…", "...")
	return msg
}

// Parse normalizes and parses a message.
func Parse(msg string) (Command, error) {
	msg = Normalize(strings.TrimSpace(msg))

	if cmd, ok, err := parseFind(msg); ok {
		return cmd, err
	}

	idx := strings.IndexAny(msg, commandChars)
	if idx < 0 {
		if strings.Contains(strings.ToLower(msg), "help") {
			return Command{Op: OpHelp}, nil
		}
		return Command{}, &ParseError{
			Message: msg,
			Reason: "your message does not contain a `?`, `!`, or `-` character, so I don't know what you want me to do." +
				" Send a message containing the word 'help' for instructions.",
		}
	}
	if strings.Contains(strings.ToLower(msg[:idx]), "help") {
		return Command{Op: OpHelp}, nil
	}

	seg, err := parseSegment(msg, msg[:idx])
	if err != nil {
		return Command{}, err
	}

	switch msg[idx] {
	case '?':
		return Command{Op: OpQuery, Segment: seg, Details: strings.HasPrefix(msg[idx:], "??")}, nil
	case '!':
		return withAnnotation(msg, Command{Op: OpPost, Segment: seg}, msg[idx+1:])
	default:
		return withAnnotation(msg, Command{Op: OpDelete, Segment: seg}, msg[idx+1:])
	}
}

func parseFind(msg string) (Command, bool, error) {
	var op Op
	switch {
	case hasAnyPrefix(msg, "getids", "findids"):
		op = OpFindIDs
	case hasAnyPrefix(msg, "getnum", "findnum"):
		op = OpFindCount
	case hasAnyPrefix(msg, "get ", "find "):
		op = OpFindIDs
	default:
		return Command{}, false, nil
	}

	_, term, found := strings.Cut(msg, " ")
	term = strings.Trim(strings.TrimSpace(term), `"'`)
	if !found || term == "" {
		return Command{}, true, &ParseError{Message: msg, Reason: "send a message like `findids sensory neuron` to search for segments with an annotation"}
	}
	return Command{Op: op, Annotation: term}, true, nil
}

func parseSegment(msg, s string) (int64, error) {
	s = strings.TrimSpace(s)
	seg, err := strconv.ParseInt(s, 10, 64)
	if err != nil || seg <= 0 {
		return 0, &ParseError{Message: msg, Reason: fmt.Sprintf("could not parse `%s` as a segment ID", s)}
	}
	return seg, nil
}

func withAnnotation(msg string, cmd Command, rest string) (Command, error) {
	cmd.Annotation = strings.TrimSpace(rest)
	if cmd.Annotation == "" {
		return Command{}, &ParseError{Message: msg, Reason: fmt.Sprintf("no annotation given after segment %d", cmd.Segment)}
	}
	return cmd, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
