// Package fs prints the contents of the filesystems the server reads
// templates and static files from
package fs

import (
	"fmt"
	"io"
	"io/fs"
	"path"

	style "github.com/stefanpenner/flood-live/style"
)

// Print writes a tree of f's contents to w under the heading name
func Print(w io.Writer, name string, f fs.FS) error {
	entries, err := fs.ReadDir(f, ".")
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	fmt.Fprintln(w, style.Section.Render(name+":"))
	printEntries(w, f, ".", entries, "  ")
	return nil
}

func printEntries(w io.Writer, f fs.FS, dir string, entries []fs.DirEntry, indent string) {
	for i, entry := range entries {
		last := i == len(entries)-1
		prefix := indent + "├─"
		if last {
			prefix = indent + "└─"
		}

		if !entry.IsDir() {
			fmt.Fprintf(w, "%s %s\n", prefix, style.File.Render("📄 "+entry.Name()))
			continue
		}

		fmt.Fprintf(w, "%s %s\n", prefix, style.Dir.Render("📁 "+entry.Name()+"/"))
		sub := path.Join(dir, entry.Name())
		children, err := fs.ReadDir(f, sub)
		if err != nil {
			continue
		}
		next := indent + "│  "
		if last {
			next = indent + "   "
		}
		printEntries(w, f, sub, children, next)
	}
}
