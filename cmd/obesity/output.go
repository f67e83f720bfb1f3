package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"obesitycheck/dataset"
	"obesitycheck/db"
	"obesitycheck/ml"
	"obesitycheck/predictor"
)

const (
	outputText  = "text"
	outputTable = "table"
	outputJSON  = "json"
)

var (
	normalColor     = color.New(color.FgGreen, color.Bold)
	overweightColor = color.New(color.FgYellow, color.Bold)
	obeseColor      = color.New(color.FgRed, color.Bold)
	errorColor      = color.New(color.FgRed)
	mutedColor      = color.New(color.FgHiBlack)
)

func setColor(enabled bool) {
	if !enabled {
		color.NoColor = true
	}
}

// labelColor picks a color by severity of the category.
func labelColor(classID int) *color.Color {
	switch classID {
	case 0:
		return normalColor
	case 1, 5, 6:
		return overweightColor
	default:
		return obeseColor
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorColor.Sprint("error:"), err)
}

func checkOutput(format string) error {
	switch format {
	case outputText, outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q, want text or table or json", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func printResult(w io.Writer, format string, r predictor.Result) error {
	switch format {
	case outputJSON:
		return writeJSON(w, r)
	case outputTable:
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Class", "Label", "Confidence"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
		if err := table.Bulk([][]string{{
			strconv.Itoa(r.ClassID),
			labelColor(r.ClassID).Sprint(r.Label),
			formatFloat(r.Confidence),
		}}); err != nil {
			return err
		}
		return table.Render()
	default:
		_, err := fmt.Fprintf(w, "Predicted obesity level: %s %s\n",
			labelColor(r.ClassID).Sprint(r.Label),
			mutedColor.Sprintf("(confidence %.2f)", r.Confidence))
		return err
	}
}

func printEncoding(w io.Writer, format string, enc predictor.Encoding) error {
	if format == outputJSON {
		return writeJSON(w, enc)
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Column", "Encoded", "Model input"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for i, name := range enc.Order {
		data = append(data, []string{
			strconv.Itoa(i),
			name,
			formatFloat(enc.Encoded[name]),
			formatFloat(enc.Features[name]),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printHistory(w io.Writer, format string, records []db.PredictionRecord) error {
	if format == outputJSON {
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No predictions recorded yet.")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Time", "Label", "Confidence"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, r := range records {
		data = append(data, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			labelColor(r.ClassID).Sprint(r.Label),
			formatFloat(r.Confidence),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printCounts(w io.Writer, counts map[string]int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Label", "Predictions"})
	var data [][]string
	for id, label := range ml.Labels() {
		data = append(data, []string{labelColor(id).Sprint(label), strconv.Itoa(counts[label])})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printLabels(w io.Writer, format string) error {
	if format == outputJSON {
		return writeJSON(w, ml.Labels())
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Class", "Label"})
	var data [][]string
	for id, label := range ml.Labels() {
		data = append(data, []string{strconv.Itoa(id), labelColor(id).Sprint(label)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printReport(w io.Writer, format string, r dataset.Report) error {
	if format == outputJSON {
		return writeJSON(w, r)
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Class", "Label", "Support", "Predicted", "Precision", "Recall"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, c := range r.Classes {
		data = append(data, []string{
			strconv.Itoa(c.ClassID),
			c.Label,
			strconv.Itoa(c.Support),
			strconv.Itoa(c.Predicted),
			formatFloat(c.Precision()),
			formatFloat(c.Recall()),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "accuracy=%s evaluated=%d skipped=%d total=%d\n",
		formatFloat(r.Accuracy()), r.Evaluated, r.Skipped, r.Total)
	return err
}
