package tent

import (
	"errors"
	"fmt"
)

// No entity URI was supplied.
var ErrEmptyURI = errors.New("no entity URI supplied")

// The entity document could not be fetched. A wrapped error may provide more context.
var ErrConnectionFailed = errors.New("entity connection failed")

// The entity document advertised no profile links, neither in the Link header nor in markup.
var ErrNoProfileLinkFound = errors.New("no profile link found")

// Every profile candidate failed, or the first usable profile listed no API roots.
var ErrNoAPIRootsFound = errors.New("no API roots found")

// Every API root failed to return a parseable post list.
var ErrPostsUnavailable = errors.New("posts unavailable")

// A returned post lacked fields required for normalization.
var ErrMalformedPost = errors.New("malformed post")

// Classification of a resolution failure, suitable for display and metrics labels.
type ErrorKind string

const (
	KindEmptyURI           ErrorKind = "EmptyURI"
	KindConnectionFailed   ErrorKind = "ConnectionFailed"
	KindNoProfileLinkFound ErrorKind = "NoProfileLinkFound"
	KindNoAPIRootsFound    ErrorKind = "NoAPIRootsFound"
	KindPostsUnavailable   ErrorKind = "PostsUnavailable"
	KindMalformedPost      ErrorKind = "MalformedPost"
)

var errorKinds = []struct {
	sentinel error
	kind     ErrorKind
}{
	{ErrEmptyURI, KindEmptyURI},
	{ErrConnectionFailed, KindConnectionFailed},
	{ErrNoProfileLinkFound, KindNoProfileLinkFound},
	{ErrNoAPIRootsFound, KindNoAPIRootsFound},
	{ErrPostsUnavailable, KindPostsUnavailable},
	{ErrMalformedPost, KindMalformedPost},
}

// Returns the kind of a resolution error, or an empty string if err is nil or not a resolution error (eg, context cancellation or a cache backend failure).
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.sentinel) {
			return ek.kind
		}
	}
	return ""
}

// Human-readable explanation of a resolution failure, intended to be shown to the person who asked for the feed.
func UserMessage(uri string, err error) string {
	switch ErrorKindOf(err) {
	case KindEmptyURI:
		return "No URI!"
	case KindConnectionFailed:
		return fmt.Sprintf("Can't connect to %s", uri)
	case KindNoProfileLinkFound:
		return "No profile link found"
	case KindNoAPIRootsFound:
		return "No API roots found!"
	case KindPostsUnavailable:
		return "Couldn't load posts from any API root"
	case KindMalformedPost:
		return "Received a post that can't be displayed"
	default:
		return "Internal error"
	}
}
