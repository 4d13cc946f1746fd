// Package checkpoint persists continuation cursors so an interrupted listing
// can be resumed from the page after the last one that was processed.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// Checkpoint records where a listing stopped.
type Checkpoint struct {
	ResourcePath string    `json:"resourcePath"`
	APIVersion   string    `json:"apiVersion"`
	NextLink     string    `json:"nextLink"`
	Pages        int       `json:"pages"`
	Items        int       `json:"items"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store saves and loads checkpoints by key.
type Store interface {
	Save(ctx context.Context, key string, cp *Checkpoint) error
	// Load returns an error wrapping constants.ErrCheckpointNotFound when
	// nothing is stored under key.
	Load(ctx context.Context, key string) (*Checkpoint, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

var keyPattern = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// ValidateKey checks that key is usable with every store.
func ValidateKey(key string) error {
	if key == "" {
		return constants.ErrCheckpointKey
	}

	if !keyPattern.MatchString(key) || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("%w: %q", constants.ErrCheckpointKeyChars, key)
	}

	return nil
}

func encode(cp *Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encoding checkpoint: %w", err)
	}

	return data, nil
}

func decode(data []byte) (*Checkpoint, error) {
	var cp Checkpoint

	err := json.Unmarshal(data, &cp)
	if err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}

	return &cp, nil
}

// Tracker keeps the checkpoint of one listing current as pages are consumed.
type Tracker struct {
	store Store
	key   string
	cp    Checkpoint
}

// NewTracker starts tracking a listing of resourcePath under key.
func NewTracker(store Store, key, resourcePath, apiVersion string) (*Tracker, error) {
	err := ValidateKey(key)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		store: store,
		key:   key,
		cp:    Checkpoint{ResourcePath: resourcePath, APIVersion: apiVersion},
	}, nil
}

// Resume loads the stored cursor, if any, into opts.ContinuationToken. It
// reports whether a checkpoint was found. A checkpoint saved for another
// resource path or API version is rejected and left in place.
func (t *Tracker) Resume(ctx context.Context, opts *arm.PageOptions) (bool, error) {
	cp, err := t.store.Load(ctx, t.key)
	if err != nil {
		if errors.Is(err, constants.ErrCheckpointNotFound) {
			return false, nil
		}

		return false, err
	}

	if cp.ResourcePath != t.cp.ResourcePath || cp.APIVersion != t.cp.APIVersion {
		return false, fmt.Errorf("%w: %w: %q was saved for %s (api-version %s)",
			arm.ErrInvalidArgument, constants.ErrCheckpointMismatch, t.key, cp.ResourcePath, cp.APIVersion)
	}

	t.cp = *cp
	opts.ContinuationToken = cp.NextLink

	return cp.NextLink != "", nil
}

// Record is called after a page has been fully processed. The checkpoint
// moves to the page's next link, or is removed once the last page is done.
func (t *Tracker) Record(ctx context.Context, page *arm.Page) error {
	if page.NextLink == "" {
		return t.store.Delete(ctx, t.key)
	}

	t.cp.NextLink = page.NextLink
	t.cp.Pages++
	t.cp.Items += len(page.Items)
	t.cp.UpdatedAt = time.Now().UTC()

	cp := t.cp

	return t.store.Save(ctx, t.key, &cp)
}

// Checkpoint returns the current state.
func (t *Tracker) Checkpoint() Checkpoint {
	return t.cp
}

// Store kinds accepted by Open.
const (
	KindMemory = "memory"
	KindNATS   = "nats"
)

// Open creates a store of the given kind. cfg is only used for KindNATS.
func Open(ctx context.Context, kind string, cfg *NATSConfig) (Store, error) {
	switch kind {
	case KindMemory, "":
		return NewMemoryStore(), nil
	case KindNATS:
		return NewNATSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownStore, kind)
	}
}
