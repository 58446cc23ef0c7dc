// Package export renders finished sessions to markdown files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"livetrans/internal/domain"
)

// Metadata captures the session header written above the transcript.
type Metadata struct {
	Title     string
	Model     string
	Language  string
	Generated time.Time
}

// Document is one finished session ready to render.
type Document struct {
	Meta     Metadata
	Segments []domain.TranscriptSegment
	Analyses []domain.AnalysisRecord
	Summary  string
}

// Render produces the markdown body for a session document.
func Render(doc Document) string {
	var b strings.Builder

	title := doc.Meta.Title
	if title == "" {
		title = "Session Transcript"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.Meta.Model != "" {
		fmt.Fprintf(&b, "- Model: `%s`\n", doc.Meta.Model)
	}
	if doc.Meta.Language != "" {
		fmt.Fprintf(&b, "- Language: %s\n", doc.Meta.Language)
	}
	if !doc.Meta.Generated.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", doc.Meta.Generated.Format(time.RFC3339))
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Transcript\n\n")
	wrote := false
	for _, segment := range doc.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		ts := time.UnixMilli(segment.TimestampMs).Format("15:04:05")
		fmt.Fprintf(&b, "**[%s] %s:** %s\n\n", ts, speakerHeading(segment.Speaker), text)
		wrote = true
	}
	if !wrote {
		b.WriteString("_No speech captured._\n\n")
	}

	if len(doc.Analyses) > 0 {
		b.WriteString("## Analyses\n\n")
		for _, record := range doc.Analyses {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", record.TimeRange, strings.TrimSpace(record.Content))
		}
	}

	if doc.Summary != "" {
		fmt.Fprintf(&b, "## Final Summary\n\n%s\n", strings.TrimSpace(doc.Summary))
	}

	return b.String()
}

// WriteFile renders the document and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(doc)), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// DefaultPath picks a timestamped file name under the user's home directory.
func DefaultPath(now time.Time) string {
	name := fmt.Sprintf("livetrans-%s.md", now.Format("20060102-150405"))
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

func speakerHeading(speaker domain.Speaker) string {
	if speaker == domain.SpeakerModel {
		return "Translator"
	}
	return "Source"
}
