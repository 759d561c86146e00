package domain

import (
	"fmt"
	"strings"
)

// DefaultCommitMessage is the commit message template; %s is replaced by the identifier.
const DefaultCommitMessage = "chore release: new release %s"

// Release holds everything a single release run needs to know.
type Release struct {
	ID             ReleaseID
	CommitMessage  string
	TagMessage     string
	Annotated      bool
	Remote         string
	IgnoreFile     string
	ExcludePattern string
}

// FormatMessage renders a message template for the identifier. Templates without a
// verb get the identifier appended.
func FormatMessage(template string, id ReleaseID) string {
	if template == "" {
		template = DefaultCommitMessage
	}
	if !strings.Contains(template, "%s") {
		return strings.TrimSpace(template) + " " + id.String()
	}
	return fmt.Sprintf(template, id.String())
}
