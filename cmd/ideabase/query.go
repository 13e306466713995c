package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/remote"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var (
		server string
		eq     []string
		in     []string
		order  string
		asc    bool
		limit  int
		single bool
		count  bool
	)
	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "run a select query against a running server and print the result as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := remote.New(server)
			opts := ideabase.SelectOptions{}
			if count {
				opts.Count = ideabase.CountExact
			}
			q := client.From(args[0]).Select("*", opts)
			for _, f := range eq {
				field, value, err := splitFlag(f)
				if err != nil {
					return err
				}
				q = q.Eq(field, parseValue(value))
			}
			for _, f := range in {
				field, value, err := splitFlag(f)
				if err != nil {
					return err
				}
				q = q.In(field, lo.Map(strings.Split(value, ","), func(v string, _ int) any {
					return parseValue(v)
				})...)
			}
			if order != "" {
				q = q.Order(order, ideabase.OrderOptions{Ascending: asc})
			}
			if limit > 0 {
				q = q.Limit(limit)
			}
			var (
				result *ideabase.Result
				err    error
			)
			if single {
				result, err = q.Single(cmd.Context())
			} else {
				result, err = q.Exec(cmd.Context())
			}
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(result); err != nil {
				return err
			}
			return result.Err()
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "base url of the ideabase server")
	cmd.Flags().StringArrayVar(&eq, "eq", nil, "equality filter (field=value), repeatable")
	cmd.Flags().StringArrayVar(&in, "in", nil, "inclusion filter (field=v1,v2), repeatable")
	cmd.Flags().StringVar(&order, "order", "", "field to sort by (descending unless --asc)")
	cmd.Flags().BoolVar(&asc, "asc", false, "sort ascending")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of records")
	cmd.Flags().BoolVar(&single, "single", false, "return a single record or null")
	cmd.Flags().BoolVar(&count, "count", false, "include an exact count of matching records")
	return cmd
}

func splitFlag(f string) (string, string, error) {
	field, value, ok := strings.Cut(f, "=")
	if !ok || field == "" {
		return "", "", errors.New(errors.Validation, "expected field=value, got %q", f)
	}
	return field, value, nil
}

// parseValue turns true/false into booleans. Everything else is a string.
func parseValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

