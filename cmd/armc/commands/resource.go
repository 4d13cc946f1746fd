package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// Headers pointing at the status of an accepted asynchronous operation.
var asyncHeaders = []string{"Azure-AsyncOperation", "Location"}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var apiVersion string

	cmd := &cobra.Command{
		Use:   "get RESOURCE_PATH",
		Short: "Get a resource",
		Long:  "Read a single resource by its path, for example /subscriptions/{id}/resourceGroups/{name}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := resolveAPIVersion(apiVersion)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				result, err := s.client.Get(ctx, args[0], version)
				if err != nil {
					return err
				}

				if !result.Found() {
					return fmt.Errorf("%w: %s", constants.ErrResourceNotFound, args[0])
				}

				return printResult(cmd, result)
			})
		},
	}

	addAPIVersionFlag(cmd, &apiVersion)

	return cmd
}

// NewPutCommand creates the put command.
func NewPutCommand() *cobra.Command {
	return newBodyCommand("put", []string{"create-or-update"}, "Create or replace a resource",
		"Send the full resource representation with PUT",
		func(ctx context.Context, c arm.Client, path, version string, body []byte) (*arm.Result, error) {
			return c.CreateOrUpdate(ctx, path, version, body)
		}, true)
}

// NewPatchCommand creates the patch command.
func NewPatchCommand() *cobra.Command {
	return newBodyCommand("patch", []string{"update"}, "Update a resource",
		"Send a partial resource representation with PATCH",
		func(ctx context.Context, c arm.Client, path, version string, body []byte) (*arm.Result, error) {
			return c.Update(ctx, path, version, body)
		}, true)
}

// NewPostCommand creates the post command.
func NewPostCommand() *cobra.Command {
	return newBodyCommand("post", []string{"action"}, "Invoke a resource action",
		"Invoke an action such as .../restart or .../listKeys with POST. The body defaults to {}",
		func(ctx context.Context, c arm.Client, path, version string, body []byte) (*arm.Result, error) {
			return c.Post(ctx, path, version, body)
		}, false)
}

type bodyCall func(ctx context.Context, c arm.Client, path, version string, body []byte) (*arm.Result, error)

func newBodyCommand(use string, aliases []string, short, long string, call bodyCall, bodyRequired bool) *cobra.Command {
	var (
		apiVersion string
		body       string
		bodyFile   string
	)

	cmd := &cobra.Command{
		Use:     use + " RESOURCE_PATH",
		Aliases: aliases,
		Short:   short,
		Long:    long,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := resolveAPIVersion(apiVersion)
			if err != nil {
				return err
			}

			payload, err := readBody(cmd.InOrStdin(), body, bodyFile, bodyRequired)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				result, err := call(ctx, s.client, args[0], version, payload)
				if err != nil {
					return err
				}

				return printResult(cmd, result)
			})
		},
	}

	addAPIVersionFlag(cmd, &apiVersion)
	addBodyFlags(cmd, &body, &bodyFile)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var apiVersion string

	cmd := &cobra.Command{
		Use:   "delete RESOURCE_PATH",
		Short: "Delete a resource",
		Long:  "Delete a resource by its path. Deletion may complete asynchronously (202)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := resolveAPIVersion(apiVersion)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				result, err := s.client.Delete(ctx, args[0], version)
				if err != nil {
					return err
				}

				return printResult(cmd, result)
			})
		},
	}

	addAPIVersionFlag(cmd, &apiVersion)

	return cmd
}

func addAPIVersionFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "api-version", "", "API version of the resource provider (defaults to api_version from config)")
}

func addBodyFlags(cmd *cobra.Command, body, bodyFile *string) {
	cmd.Flags().StringVarP(body, "body", "b", "", "request body as JSON or YAML")
	cmd.Flags().StringVarP(bodyFile, "body-file", "f", "", "read the request body from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

func resolveAPIVersion(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if configured := viper.GetString("api_version"); configured != "" {
		return configured, nil
	}

	return "", constants.ErrAPIVersionRequired
}

// readBody returns the request body as JSON. YAML input is converted.
// Without input, required bodies fail and optional ones default to {}.
func readBody(stdin io.Reader, body, bodyFile string, required bool) ([]byte, error) {
	var raw []byte

	switch {
	case body != "":
		raw = []byte(body)
	case bodyFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading body from stdin: %w", err)
		}

		raw = data
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile) //nolint:gosec // path supplied by the user
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}

		raw = data
	}

	if len(raw) == 0 {
		if required {
			return nil, constants.ErrBodyRequired
		}

		return []byte("{}"), nil
	}

	if json.Valid(raw) {
		return raw, nil
	}

	var doc interface{}

	err := yaml.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidBody, err)
	}

	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidBody, err)
	}

	return converted, nil
}

// printResult prints the body, or for empty responses the status and any
// asynchronous operation URL on stderr.
func printResult(cmd *cobra.Command, result *arm.Result) error {
	if len(result.Body) == 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Status: %d %s\n", result.StatusCode, http.StatusText(result.StatusCode))

		for _, header := range asyncHeaders {
			if value := result.Header.Get(header); value != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", header, value)
			}
		}

		return nil
	}

	format, err := outputFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return renderDocument(cmd.OutOrStdout(), format, result.Body)
}
