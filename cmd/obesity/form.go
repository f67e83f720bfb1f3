package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"obesitycheck/ml"
	"obesitycheck/predictor"
)

// formFlags exposes every answer as a flag, defaulting to the form defaults.
type formFlags struct {
	values      map[string]*string
	interactive bool
}

func flagName(field string) string {
	if field == ml.ColFamilyHistory {
		return "family-history"
	}
	return strings.ToLower(field)
}

func addFormFlags(cmd *cobra.Command) *formFlags {
	ff := &formFlags{values: make(map[string]*string)}
	for _, field := range predictor.Schema() {
		usage := field.Question
		if field.Kind == predictor.KindChoice {
			usage += ": " + strings.Join(field.Options, " or ")
		}
		ff.values[field.Name] = cmd.Flags().String(flagName(field.Name), field.Default, usage)
	}
	cmd.Flags().BoolVarP(&ff.interactive, "interactive", "i", false, "Prompt for every answer, flags become the defaults")
	return ff
}

func (ff *formFlags) form(cmd *cobra.Command) (predictor.Form, error) {
	values := url.Values{}
	for name, v := range ff.values {
		values.Set(name, *v)
	}
	if ff.interactive {
		if err := prompt(cmd.InOrStdin(), cmd.OutOrStdout(), values); err != nil {
			return predictor.Form{}, err
		}
	}
	return predictor.FormFromValues(values)
}

// prompt asks each question in schema order. An empty answer keeps the
// current value; for choices the option number is accepted too. End of
// input keeps the remaining values.
func prompt(in io.Reader, out io.Writer, values url.Values) error {
	scanner := bufio.NewScanner(in)
	for _, field := range predictor.Schema() {
		current := values.Get(field.Name)
		if field.Kind == predictor.KindChoice {
			var opts []string
			for i, o := range field.Options {
				opts = append(opts, fmt.Sprintf("%d=%s", i+1, o))
			}
			fmt.Fprintf(out, "%s (%s) [%s]: ", field.Question, strings.Join(opts, ", "), current)
		} else {
			fmt.Fprintf(out, "%s %s [%s]: ", field.Question, rangeHint(field), current)
		}

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}
		if field.Kind == predictor.KindChoice {
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(field.Options) {
				answer = field.Options[n-1]
			}
		}
		values.Set(field.Name, answer)
	}
	return nil
}

func rangeHint(f predictor.Field) string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return mutedColor.Sprintf("%s-%s", num(f.Min), num(f.Max))
}
