package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/armclient/internal/checkpoint"
	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

type listOptions struct {
	apiVersion        string
	method            string
	body              string
	bodyFile          string
	itemsProperty     string
	nextLinkProperty  string
	maxPages          int
	pageSize          int
	pageSizeParameter string
	continuationToken string
	checkpointKey     string
	columns           []string
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "list RESOURCE_PATH",
		Aliases: []string{"ls"},
		Short:   "List a paged collection",
		Long: `List every item of a collection, following next links page by page.

If the listing is interrupted, the continuation token of the next page is
printed to stderr. Pass it back with --continuation-token to resume, or use
--checkpoint to have the position saved and restored automatically.`,
		Example: `  armc list /subscriptions --api-version 2020-01-01
  armc list /subscriptions/$SUB/resourcegroups --api-version 2020-06-01 --columns name,location
  armc list /providers/Microsoft.ResourceGraph/resources --method POST --api-version 2021-03-01 \
      --body '{"query":"Resources | take 5"}' --items-property data --nextlink-property '$skipToken'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	addAPIVersionFlag(cmd, &opts.apiVersion)
	addBodyFlags(cmd, &opts.body, &opts.bodyFile)
	flags.StringVarP(&opts.method, "method", "X", string(arm.VerbGet), "HTTP method of the first request (GET, PUT, PATCH, POST, DELETE)")
	flags.StringVar(&opts.itemsProperty, "items-property", constants.DefaultItemsPropertyName, "response property holding the page items")
	flags.StringVar(&opts.nextLinkProperty, "nextlink-property", constants.DefaultNextLinkPropertyName, "response property holding the next page URI")
	flags.IntVar(&opts.maxPages, "max-pages", 0, "stop after this many pages, 0 for all")
	flags.IntVar(&opts.pageSize, "page-size", 0, "page size hint sent on the first request")
	flags.StringVar(&opts.pageSizeParameter, "page-size-param", "", "query parameter carrying --page-size, for example $top")
	flags.StringVar(&opts.continuationToken, "continuation-token", "", "resume from this next link")
	flags.StringVar(&opts.checkpointKey, "checkpoint", "", "save and resume the listing position under this key")
	flags.StringSliceVar(&opts.columns, "columns", nil, "table columns as JSON paths (default name,type,location)")

	cmd.MarkFlagsMutuallyExclusive("checkpoint", "continuation-token")

	return cmd
}

func runList(cmd *cobra.Command, resourcePath string, opts *listOptions) error {
	if opts.checkpointKey != "" && opts.continuationToken != "" {
		return constants.ErrCheckpointWithStart
	}

	version, err := resolveAPIVersion(opts.apiVersion)
	if err != nil {
		return err
	}

	verb := arm.Verb(strings.ToUpper(opts.method))

	var body []byte
	if verb == arm.VerbPut || verb == arm.VerbPatch || verb == arm.VerbPost {
		body, err = readBody(cmd.InOrStdin(), opts.body, opts.bodyFile, verb != arm.VerbPost)
		if err != nil {
			return err
		}
	}

	format, err := outputFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	pageOptions := &arm.PageOptions{
		ItemsPropertyName:    opts.itemsProperty,
		NextLinkPropertyName: opts.nextLinkProperty,
		PageSizeHint:         opts.pageSize,
		PageSizeParameter:    opts.pageSizeParameter,
		ContinuationToken:    opts.continuationToken,
		MaxPages:             opts.maxPages,
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		var tracker *checkpoint.Tracker

		if opts.checkpointKey != "" {
			store, err := openCheckpointStore(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			tracker, err = checkpoint.NewTracker(store, opts.checkpointKey, resourcePath, version)
			if err != nil {
				return err
			}

			resumed, err := tracker.Resume(ctx, pageOptions)
			if err != nil {
				return err
			}

			if resumed {
				s.logger.Info("Resuming from checkpoint", map[string]interface{}{
					"checkpoint": opts.checkpointKey,
					"pages":      tracker.Checkpoint().Pages,
				})
			}
		}

		pager, err := newListPager(s.client, verb, resourcePath, version, body, pageOptions)
		if err != nil {
			return err
		}

		return consumePages(ctx, cmd, pager, tracker, format, opts.columns)
	})
}

func newListPager(client arm.Client, verb arm.Verb, resourcePath, version string, body []byte, opts *arm.PageOptions) (*arm.Pager, error) {
	switch verb {
	case arm.VerbGet:
		return client.GetPaged(resourcePath, version, opts)
	case arm.VerbPut:
		return client.PutPaged(resourcePath, version, body, opts)
	case arm.VerbPatch:
		return client.PatchPaged(resourcePath, version, body, opts)
	case arm.VerbPost:
		return client.PostPaged(resourcePath, version, body, opts)
	case arm.VerbDelete:
		return client.DeletePaged(resourcePath, version, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", arm.ErrInvalidArgument, verb)
	}
}

// consumePages drains the pager. Raw output is written page by page; other
// formats are rendered once every page has arrived, or with the pages read so
// far when the listing fails. A checkpoint advances only after its page has
// been handled.
func consumePages(ctx context.Context, cmd *cobra.Command, pager *arm.Pager, tracker *checkpoint.Tracker, format string, columns []string) error {
	items := make([]arm.Item, 0)

	for page, err := range pager.Pages(ctx) {
		if err != nil {
			if format != constants.FormatRaw && len(items) > 0 {
				_ = renderItems(cmd.OutOrStdout(), format, items, columns)
			}

			return interrupted(cmd, pager, err)
		}

		if format == constants.FormatRaw {
			err = renderItems(cmd.OutOrStdout(), format, page.Items, columns)
			if err != nil {
				return err
			}
		} else {
			items = append(items, page.Items...)
		}

		if tracker != nil {
			err = tracker.Record(ctx, page)
			if err != nil {
				return fmt.Errorf("saving checkpoint: %w", err)
			}
		}
	}

	if format == constants.FormatRaw {
		return nil
	}

	return renderItems(cmd.OutOrStdout(), format, items, columns)
}

// interrupted reports where an unfinished listing can be resumed.
func interrupted(cmd *cobra.Command, pager *arm.Pager, err error) error {
	if token := pager.NextLink(); token != "" && !errors.Is(err, arm.ErrInvalidArgument) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Listing interrupted. Resume with --continuation-token '%s'\n", token)
	}

	return err
}

func openCheckpointStore(ctx context.Context) (checkpoint.Store, error) {
	kind := viper.GetString("checkpoint_store")
	natsURL := viper.GetString("nats_url")

	if kind == "" && natsURL != "" {
		kind = checkpoint.KindNATS
	}

	return checkpoint.Open(ctx, kind, &checkpoint.NATSConfig{
		URL:    natsURL,
		Bucket: viper.GetString("checkpoint_bucket"),
		TTL:    viper.GetDuration("checkpoint_ttl"),
	})
}
