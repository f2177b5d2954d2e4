package adsql

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jakoblorz/adsql/x/util"
)

const shellPrompt = "ads> "

// Client runs interactive sessions against the backend.
type Client struct {
	b *Backend
}

// RunShell reads semicolon terminated statements from in and writes
// their results to out until quit, exit or EOF. Statement errors are
// printed and the session continues.
func (c *Client) RunShell(ctx context.Context, in io.Reader, out io.Writer) error {
	cur, err := c.b.Cursor(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	scanner := bufio.NewScanner(in)
	var stmt strings.Builder
	fmt.Fprint(out, shellPrompt)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if stmt.Len() == 0 {
			switch strings.ToLower(strings.TrimSuffix(line, ";")) {
			case "quit", "exit":
				return nil
			case "":
				fmt.Fprint(out, shellPrompt)
				continue
			}
		}

		stmt.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			stmt.WriteString("\n")
			continue
		}

		query := strings.TrimSuffix(stmt.String(), ";")
		stmt.Reset()
		if err := c.run(ctx, cur, query, out); err != nil {
			log.WithError(err).Debug("Shell statement failed")
			fmt.Fprintf(out, "error: %v\n", err)
		}
		fmt.Fprint(out, shellPrompt)
	}
	return errors.Wrap(scanner.Err(), "reading shell input")
}

// literal escapes % for drivers reading %s placeholders, so that
// statements run as typed.
func (c *Client) literal(query string) string {
	if d, ok := c.b.wrapped(); ok && d.Style() == PlaceholderFormat {
		return strings.ReplaceAll(query, "%", "%%")
	}
	return query
}

func (c *Client) run(ctx context.Context, cur *Cursor, query string, out io.Writer) error {
	query = c.literal(query)
	if err := cur.Execute(ctx, query); err != nil {
		return err
	}
	desc := cur.Description()
	if desc == nil {
		fmt.Fprintf(out, "%d row(s) affected\n", cur.RowCount())
		return nil
	}
	rows, err := cur.FetchAll()
	if err != nil {
		return err
	}
	RenderTable(out, desc, rows)
	fmt.Fprintf(out, "%d row(s)\n", len(rows))
	return nil
}

// RenderTable writes rows as a text table headed by the column names.
func RenderTable(out io.Writer, desc []ColumnDescription, rows [][]interface{}) {
	header := make([]string, len(desc))
	for i, d := range desc {
		header[i] = d.Name
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	for _, row := range rows {
		table.Append(util.ToPlainStrings(row))
	}
	table.Render()
}
