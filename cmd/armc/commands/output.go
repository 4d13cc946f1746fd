package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

var defaultColumns = []string{"name", "type", "location"}

// outputFormat resolves --output. Without one, terminals get a table and
// pipes get JSON.
func outputFormat(w io.Writer) (string, error) {
	format := strings.ToLower(viper.GetString("output"))
	if format == "" {
		if isTerminal(w) {
			return constants.FormatTable, nil
		}

		return constants.FormatJSON, nil
	}

	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable, constants.FormatRaw:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// renderDocument prints a single response body.
func renderDocument(w io.Writer, format string, body []byte) error {
	switch format {
	case constants.FormatRaw:
		return writeLine(w, body)
	case constants.FormatYAML:
		return writeYAML(w, body)
	case constants.FormatTable:
		return renderPropertyTable(w, body)
	default:
		return writeIndentedJSON(w, body)
	}
}

// renderItems prints a collection. columns are gjson paths used by the table format.
func renderItems(w io.Writer, format string, items []arm.Item, columns []string) error {
	switch format {
	case constants.FormatRaw:
		for _, item := range items {
			err := writeLine(w, item.Raw())
			if err != nil {
				return err
			}
		}

		return nil
	case constants.FormatTable:
		return renderItemTable(w, items, columns)
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	if format == constants.FormatYAML {
		return writeYAML(w, data)
	}

	return writeIndentedJSON(w, data)
}

func writeLine(w io.Writer, data []byte) error {
	var buf bytes.Buffer

	err := json.Compact(&buf, data)
	if err != nil {
		buf.Reset()
		buf.Write(data)
	}

	buf.WriteByte('\n')

	_, err = w.Write(buf.Bytes())

	return err
}

func writeIndentedJSON(w io.Writer, data []byte) error {
	var buf bytes.Buffer

	err := json.Indent(&buf, data, "", strings.Repeat(" ", constants.JSONIndentSize))
	if err != nil {
		return writeLine(w, data)
	}

	buf.WriteByte('\n')

	_, err = w.Write(buf.Bytes())

	return err
}

// writeYAML re-encodes JSON as block YAML. Decoding into a node keeps key
// order; the JSON flow and quoting styles are dropped.
func writeYAML(w io.Writer, data []byte) error {
	var node yaml.Node

	err := yaml.Unmarshal(data, &node)
	if err != nil {
		return fmt.Errorf("converting to YAML: %w", err)
	}

	clearStyle(&node)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(constants.JSONIndentSize)

	err = encoder.Encode(&node)
	if err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}

	return encoder.Close()
}

func clearStyle(node *yaml.Node) {
	node.Style = 0

	for _, child := range node.Content {
		clearStyle(child)
	}
}

func renderPropertyTable(w io.Writer, body []byte) error {
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return writeIndentedJSON(w, body)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	root.ForEach(func(key, value gjson.Result) bool {
		_ = table.Append(key.String(), cell(value))

		return true
	})

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderItemTable(w io.Writer, items []arm.Item, columns []string) error {
	if len(columns) == 0 {
		columns = defaultColumns
		if len(items) > 0 && !gjson.ParseBytes(items[0].Raw()).IsObject() {
			columns = []string{"@this"}
		}
	}

	headers := make([]any, len(columns))
	for i, column := range columns {
		headers[i] = column
	}

	table := tablewriter.NewWriter(w)
	table.Header(headers...)

	for _, item := range items {
		row := make([]any, len(columns))

		for i, column := range columns {
			value := gjson.GetBytes(item.Raw(), column)
			if !value.Exists() {
				row[i] = constants.NotAvailable

				continue
			}

			row[i] = cell(value)
		}

		_ = table.Append(row...)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// cell renders a JSON value for a table, truncating long values.
func cell(value gjson.Result) string {
	var text string

	switch value.Type {
	case gjson.Null:
		text = ""
	case gjson.JSON:
		var buf bytes.Buffer
		if json.Compact(&buf, []byte(value.Raw)) == nil {
			text = buf.String()
		} else {
			text = value.Raw
		}
	default:
		text = value.String()
	}

	if len(text) > constants.StringTruncationLength {
		text = text[:constants.StringTruncationLength-3] + "..."
	}

	return text
}
