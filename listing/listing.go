// Package listing renders an EntrySet for people: name-sorted rows, an
// aggregate count and total size, and an icon class per media type.
package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	yaml "gopkg.in/yaml.v2"

	"github.com/meigma/zag"
)

// Icon classifies an entry for display.
type Icon string

// Icon classes.
const (
	IconZip  Icon = "zip"
	IconPNG  Icon = "png"
	IconJPG  Icon = "jpg"
	IconGIF  Icon = "gif"
	IconText Icon = "text"
	IconFile Icon = "file"
)

// IconFor returns the icon class for a media type.
func IconFor(mediaType string) Icon {
	switch mediaType {
	case "application/zip":
		return IconZip
	case "image/png":
		return IconPNG
	case "image/jpeg":
		return IconJPG
	case "image/gif":
		return IconGIF
	case "text/plain":
		return IconText
	default:
		return IconFile
	}
}

var units = []string{"B", "KB", "MB", "GB", "TB"}

// ReadableSize formats n in binary units: whole bytes below 1 KB, two
// decimals above.
func ReadableSize(n int64) string {
	size := float64(n)
	i := 0
	for ; size > 1024 && i < len(units)-1; i++ {
		size /= 1024
	}
	prec := 2
	if i == 0 {
		prec = 0
	}
	return strconv.FormatFloat(size, 'f', prec, 64) + " " + units[i]
}

// Row is one entry in a Listing.
type Row struct {
	Name      string `json:"name" yaml:"name"`
	Size      int64  `json:"size" yaml:"size"`
	Readable  string `json:"readable" yaml:"readable"`
	MediaType string `json:"mediaType,omitempty" yaml:"mediaType,omitempty"`
	Icon      Icon   `json:"icon" yaml:"icon"`
	Digest    string `json:"digest" yaml:"digest"`
}

// Listing is a display snapshot of an EntrySet.
type Listing struct {
	Count      int    `json:"count" yaml:"count"`
	TotalBytes int64  `json:"totalBytes" yaml:"totalBytes"`
	Total      string `json:"total" yaml:"total"`
	Entries    []Row  `json:"entries" yaml:"entries"`
}

// Build returns the listing for set, rows sorted by name.
func Build(set zag.EntrySet) Listing {
	count, total := set.Summarize()
	l := Listing{
		Count:      count,
		TotalBytes: total,
		Total:      ReadableSize(total),
		Entries:    make([]Row, 0, count),
	}
	for _, e := range set.Sorted() {
		l.Entries = append(l.Entries, Row{
			Name:      e.Name,
			Size:      e.Size,
			Readable:  ReadableSize(e.Size),
			MediaType: e.MediaType,
			Icon:      IconFor(e.MediaType),
			Digest:    e.Digest.String(),
		})
	}
	return l
}

// WriteText writes the listing as aligned text.
func (l Listing) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d entries - %s\n", l.Count, l.Total); err != nil {
		return err
	}
	if len(l.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No files selected.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range l.Entries {
		if _, err := fmt.Fprintf(tw, "[%s]\t%s\t(%s)\n", r.Icon, r.Name, r.Readable); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteYAML writes the listing as a YAML document.
func (l Listing) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// WriteJSON writes the listing as indented JSON.
func (l Listing) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// Format selects an output encoding for Write.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Write renders l in format f.
func (l Listing) Write(w io.Writer, f Format) error {
	switch f {
	case FormatText, "":
		return l.WriteText(w)
	case FormatYAML:
		return l.WriteYAML(w)
	case FormatJSON:
		return l.WriteJSON(w)
	default:
		return fmt.Errorf("unknown listing format %q", f)
	}
}

// Render writes the text listing for set.
func Render(w io.Writer, set zag.EntrySet) error {
	return Build(set).WriteText(w)
}
