// Package cli provides CLI output helpers for termquery.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/termquery/internal/dictionary"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json" (case-insensitive).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteQuery writes a generated fragment. Text output is the fragment itself, unquoted,
// so it can be pasted into a larger query.
func WriteQuery(w io.Writer, property, fragment string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"property": property, "query": fragment})
	}
	_, err := fmt.Fprintln(w, fragment)
	return err
}

// WriteFieldExists writes the result of a field presence check.
func WriteFieldExists(w io.Writer, field string, exists bool, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"field": field, "exists": exists})
	}
	verdict := "has no terms"
	if exists {
		verdict = "has terms"
	}
	_, err := fmt.Fprintf(w, "%s %s\n", field, verdict)
	return err
}

// WriteTerms writes the terms indexed for field, one per line in text form.
func WriteTerms(w io.Writer, field string, terms []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"field": field, "terms": terms, "count": len(terms)})
	}
	for _, term := range terms {
		if _, err := fmt.Fprintln(w, term); err != nil {
			return err
		}
	}
	return nil
}

// WriteProperties writes property definitions using short names where ns knows the prefix.
func WriteProperties(w io.Writer, defs []dictionary.PropertyDefinition, ns dictionary.NamespaceService, format OutputFormat) error {
	type row struct {
		Name     string `json:"name"`
		DataType string `json:"data_type"`
		Title    string `json:"title,omitempty"`
		Indexed  bool   `json:"indexed"`
	}
	rows := make([]row, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, row{
			Name:     displayName(def.Name, ns),
			DataType: displayName(def.DataType, ns),
			Title:    def.Title,
			Indexed:  def.Indexed,
		})
	}
	if format == OutputJSON {
		return writeJSON(w, rows)
	}
	for _, r := range rows {
		indexed := ""
		if !r.Indexed {
			indexed = " (not indexed)"
		}
		if _, err := fmt.Fprintf(w, "%-32s %-12s %s%s\n", r.Name, r.DataType, Truncate(r.Title, 40), indexed); err != nil {
			return err
		}
	}
	return nil
}

func displayName(q dictionary.QName, ns dictionary.NamespaceService) string {
	if short, err := q.PrefixString(ns); err == nil {
		return short
	}
	return q.String()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
