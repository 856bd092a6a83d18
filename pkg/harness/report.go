package harness

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-faster/jx"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// WriteReport renders results in the given format.
func WriteReport(w io.Writer, format Format, results []Result) error {
	switch format {
	case FormatText, "":
		return WriteText(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	}
	return fmt.Errorf("unknown report format %q", format)
}

func WriteText(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	passed := 0
	for _, r := range results {
		status := "PASS"
		if r.Passed {
			passed++
		} else {
			status = "FAIL"
		}
		line := fmt.Sprintf("%s\t%s\t%s", status, r.Name, r.Duration.Round(time.Millisecond))
		if !r.Passed {
			line += "\t" + r.Reason()
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(tw, "\n%d/%d scenarios passed\n", passed, len(results)); err != nil {
		return err
	}
	return tw.Flush()
}

func WriteJSON(w io.Writer, results []Result) error {
	_, err := w.Write(EncodeResults(results, true))
	return err
}

// EncodeResults renders the results as a JSON array. Durations are left out when withDuration is false.
func EncodeResults(results []Result, withDuration bool) []byte {
	var e jx.Encoder
	e.SetIdent(2)
	e.ArrStart()
	for _, r := range results {
		e.ObjStart()
		e.Field("name", func(e *jx.Encoder) { e.Str(r.Name) })
		e.Field("passed", func(e *jx.Encoder) { e.Bool(r.Passed) })
		if !r.Passed {
			e.Field("reason", func(e *jx.Encoder) { e.Str(r.Reason()) })
		}
		if withDuration {
			e.Field("duration_ms", func(e *jx.Encoder) { e.Int64(r.Duration.Milliseconds()) })
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}
