package arm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// Verb is the HTTP method of a generic operation.
type Verb string

// Supported verbs.
const (
	VerbGet    Verb = http.MethodGet
	VerbPut    Verb = http.MethodPut
	VerbPatch  Verb = http.MethodPatch
	VerbDelete Verb = http.MethodDelete
	VerbPost   Verb = http.MethodPost
)

// requiresBody reports whether requests built from a resource path must carry a body.
func (v Verb) requiresBody() bool {
	return v == VerbPut || v == VerbPatch || v == VerbPost
}

func (v Verb) valid() bool {
	switch v {
	case VerbGet, VerbPut, VerbPatch, VerbDelete, VerbPost:
		return true
	default:
		return false
	}
}

// Item is one element of a paged collection, kept as the raw JSON text the
// service returned.
type Item struct {
	raw json.RawMessage
}

// Raw returns the raw JSON text of the item.
func (i Item) Raw() json.RawMessage {
	return i.raw
}

// String returns the raw JSON text of the item.
func (i Item) String() string {
	return string(i.raw)
}

// Decode unmarshals the item into v.
func (i Item) Decode(v any) error {
	err := json.Unmarshal(i.raw, v)
	if err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}

	return nil
}

// MarshalJSON emits the raw item unchanged.
func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) == 0 {
		return []byte("null"), nil
	}

	return i.raw, nil
}

// UnmarshalJSON keeps a copy of data.
func (i *Item) UnmarshalJSON(data []byte) error {
	i.raw = bytes.Clone(data)

	return nil
}

// Equal reports whether both items carry identical JSON text.
func (i Item) Equal(other Item) bool {
	return bytes.Equal(i.raw, other.raw)
}

// Page is one batch of items returned by a single list request.
type Page struct {
	Items []Item
	// ContinuationToken is the cursor that produced this page, empty for the
	// first page of a fresh iteration. Passing it back re-reads this page.
	ContinuationToken string
	// NextLink is the cursor of the following page, empty on the last page.
	// Passing it back resumes after this page.
	NextLink string
}

// PageOptions configures how paged responses are interpreted.
type PageOptions struct {
	// ItemsPropertyName names the array holding the page items.
	ItemsPropertyName string
	// NextLinkPropertyName names the string holding the next page URI.
	NextLinkPropertyName string
	// PageSizeHint is advisory; services are free to ignore it.
	PageSizeHint int
	// PageSizeParameter is the query parameter that carries PageSizeHint on the
	// first request (for example "$top"). The hint is not sent when empty.
	PageSizeParameter string
	// ContinuationToken resumes iteration at a previously observed next link.
	ContinuationToken string
	// MaxPages stops iteration after this many pages. Zero means no limit.
	MaxPages int
}

// DefaultPageOptions returns the options used when none are supplied.
func DefaultPageOptions() *PageOptions {
	return &PageOptions{
		ItemsPropertyName:    constants.DefaultItemsPropertyName,
		NextLinkPropertyName: constants.DefaultNextLinkPropertyName,
	}
}

// withDefaults returns a copy of o with empty property names defaulted.
func (o *PageOptions) withDefaults() PageOptions {
	resolved := *DefaultPageOptions()
	if o == nil {
		return resolved
	}

	resolved.PageSizeHint = o.PageSizeHint
	resolved.PageSizeParameter = o.PageSizeParameter
	resolved.ContinuationToken = o.ContinuationToken
	resolved.MaxPages = o.MaxPages

	if o.ItemsPropertyName != "" {
		resolved.ItemsPropertyName = o.ItemsPropertyName
	}

	if o.NextLinkPropertyName != "" {
		resolved.NextLinkPropertyName = o.NextLinkPropertyName
	}

	return resolved
}

// Result is the outcome of a single-object operation.
type Result struct {
	StatusCode int
	Header     http.Header
	// Body is nil when the service returned no content or the resource was not found.
	Body json.RawMessage
}

// Found reports whether the resource existed. Only GET yields a not-found result.
func (r *Result) Found() bool {
	return r != nil && r.StatusCode != http.StatusNotFound
}
