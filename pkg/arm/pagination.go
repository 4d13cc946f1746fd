package arm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractPage splits a list response body into its items and the cursor of
// the next page. The body must be a JSON object whose items property is an
// array. An absent, null or empty next link yields "". Items are returned as
// raw JSON and never decoded.
func ExtractPage(body []byte, opts *PageOptions) ([]Item, string, error) {
	resolved := opts.withDefaults()

	if !gjson.ValidBytes(body) {
		return nil, "", newMalformedResponseError(body, "body is not valid JSON")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, "", newMalformedResponseError(body, "body is not a JSON object")
	}

	itemsValue, ok := exactProperty(root, resolved.ItemsPropertyName)
	if !ok {
		return nil, "", newMalformedResponseError(body, "property %q is missing", resolved.ItemsPropertyName)
	}

	if !itemsValue.IsArray() {
		return nil, "", newMalformedResponseError(body, "property %q is not an array", resolved.ItemsPropertyName)
	}

	items := make([]Item, 0)

	itemsValue.ForEach(func(_, value gjson.Result) bool {
		items = append(items, Item{raw: []byte(value.Raw)})

		return true
	})

	nextLink, err := nextLinkOf(root, body, resolved.NextLinkPropertyName)
	if err != nil {
		return nil, "", err
	}

	return items, nextLink, nil
}

func nextLinkOf(root gjson.Result, body []byte, name string) (string, error) {
	value, ok := lookupProperty(root, name)
	if !ok {
		return "", nil
	}

	switch value.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		link := value.String()
		if link == "" {
			return "", nil
		}

		if !isAbsoluteHTTPURI(link) {
			return "", newMalformedResponseError(body, "property %q is not an absolute URI: %q", name, link)
		}

		return link, nil
	default:
		return "", newMalformedResponseError(body, "property %q is not a string", name)
	}
}

// exactProperty finds a top-level property whose name matches exactly. Keys
// are compared unescaped, so names containing gjson path syntax are matched
// literally.
func exactProperty(root gjson.Result, name string) (gjson.Result, bool) {
	var (
		found gjson.Result
		ok    bool
	)

	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == name {
			found, ok = value, true

			return false
		}

		return true
	})

	return found, ok
}

// lookupProperty is exactProperty with a fallback to a case-insensitive
// match. Only the next link is looked up this way.
func lookupProperty(root gjson.Result, name string) (gjson.Result, bool) {
	var (
		exact, folded     gjson.Result
		hasExact, hasFold bool
	)

	root.ForEach(func(key, value gjson.Result) bool {
		switch {
		case key.String() == name:
			exact, hasExact = value, true

			return false
		case !hasFold && strings.EqualFold(key.String(), name):
			folded, hasFold = value, true
		}

		return true
	})

	if hasExact {
		return exact, true
	}

	return folded, hasFold
}

type cursorKind int

const (
	cursorInitial cursorKind = iota
	cursorContinuation
	cursorDone
)

// cursorState is the position of one iteration: before the first request,
// at a continuation URI, or finished.
type cursorState struct {
	kind cursorKind
	uri  string
}

func initialCursor(continuationToken string) cursorState {
	if continuationToken != "" {
		return cursorState{kind: cursorContinuation, uri: continuationToken}
	}

	return cursorState{kind: cursorInitial}
}

// advance returns the state following a page whose next link is nextLink.
func (s cursorState) advance(nextLink string) cursorState {
	if nextLink == "" {
		return cursorState{kind: cursorDone}
	}

	return cursorState{kind: cursorContinuation, uri: nextLink}
}

func (s cursorState) done() bool {
	return s.kind == cursorDone
}

// token is the value a caller passes back to re-read the page at this state.
func (s cursorState) token() string {
	if s.kind == cursorContinuation {
		return s.uri
	}

	return ""
}
