// Package models defines the data types exchanged with the DFS gateway.
package models

import "time"

// EntryKind distinguishes files from directories in a listing.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// DirectoryEntry is one row of a directory listing. Entries are rebuilt
// from scratch on every successful fetch; no identity survives a refresh.
type DirectoryEntry struct {
	Name       string    // Display name (last path segment, "Root" for /)
	Path       string    // Canonical path; directories carry a trailing slash
	Kind       EntryKind // file or directory
	Size       int64     // Bytes, files only
	ModifiedAt time.Time // Zero when the gateway did not report it
}

// IsDir reports whether the entry is a directory.
func (e DirectoryEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Listing is one complete directory listing.
type Listing struct {
	Path        string // Directory the listing describes
	Files       []DirectoryEntry
	Directories []DirectoryEntry
}

// TotalEntries returns the combined number of files and directories.
func (l Listing) TotalEntries() int {
	return len(l.Files) + len(l.Directories)
}
