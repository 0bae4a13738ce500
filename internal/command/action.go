// Package command turns inbound chat messages into replies: it normalizes
// the sender, checks the allow-list, classifies the text and hands the
// reply to the outbound transport.
package command

import "strings"

// Action is the closed set of things the bridge can do for a message.
type Action int

const (
	ActionDefault Action = iota
	ActionHelp
	ActionPing
	ActionAbout
	ActionCheck
)

func (a Action) String() string {
	switch a {
	case ActionHelp:
		return "help"
	case ActionPing:
		return "ping"
	case ActionAbout:
		return "about"
	case ActionCheck:
		return "check"
	default:
		return "default"
	}
}

// Normalize lower-cases and trims a message body.
func Normalize(body string) string {
	return strings.ToLower(strings.TrimSpace(body))
}

// Classify maps any message body to an Action. Unrecognized text, including
// the empty string, is ActionDefault.
func Classify(body string) Action {
	switch Normalize(body) {
	case "help":
		return ActionHelp
	case "ping":
		return ActionPing
	case "about":
		return ActionAbout
	case "check":
		return ActionCheck
	default:
		return ActionDefault
	}
}
