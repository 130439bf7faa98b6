// Package report writes the corpus statistics of a finished crawl as plain
// text files and as a Markdown summary.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/masahif/corpuscrawl/internal/stats"
)

// Output file names written by WriteText
const (
	UniqueURLsFile  = "unique_urls.txt"
	LongestPageFile = "longest_page.txt"
	TokensFile      = "tokens.txt"
	SubdomainsFile  = "subdomains.txt"
	SummaryFile     = "summary.md"
)

// WriteText writes the four answer files into dir, creating it if needed
func WriteText(dir string, snap stats.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(*bufio.Writer) error
	}{
		{UniqueURLsFile, func(w *bufio.Writer) error {
			if _, err := fmt.Fprintf(w, "Unique pages: %d\n", len(snap.UniqueURLs)); err != nil {
				return err
			}
			for _, u := range snap.UniqueURLs {
				if _, err := fmt.Fprintln(w, u); err != nil {
					return err
				}
			}
			return nil
		}},
		{LongestPageFile, func(w *bufio.Writer) error {
			_, err := fmt.Fprintf(w, "URL: %s\nWords: %d\n", snap.LongestPage.URL, snap.LongestPage.Tokens)
			return err
		}},
		{TokensFile, func(w *bufio.Writer) error {
			for _, tc := range snap.TopTokens {
				if _, err := fmt.Fprintf(w, "%s %d\n", tc.Token, tc.Count); err != nil {
					return err
				}
			}
			return nil
		}},
		{SubdomainsFile, func(w *bufio.Writer) error {
			for _, sc := range snap.Subdomains {
				if _, err := fmt.Fprintf(w, "%s, %d\n", sc.Host, sc.Count); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	for _, fw := range writers {
		if err := writeFile(filepath.Join(dir, fw.name), fw.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
