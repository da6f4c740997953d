package vcontainer

// File passthrough: spec.md §4.8 exposes the VFS's file/directory
// operations directly on the Container so a host never has to reach
// into the FS field for routine I/O. Every method here is a thin
// forward onto c.FS; the VFS owns all the actual semantics (and its own
// errors propagate unchanged, per spec.md §7's "VFS errors -> direct
// caller" rule).

// WriteFile creates or replaces the file at path.
func (c *Container) WriteFile(path string, content []byte) error {
	return c.FS.WriteFile(path, content)
}

// ReadFile returns the contents of the file at path.
func (c *Container) ReadFile(path string) ([]byte, error) {
	return c.FS.ReadFile(path)
}

// DeleteFile removes the file at path.
func (c *Container) DeleteFile(path string, recursive bool) error {
	return c.FS.DeleteFile(path, recursive)
}

// ListFiles returns every file path in the container, in no particular
// order.
func (c *Container) ListFiles() []string {
	return c.FS.ListFiles()
}

// CreateDirectory creates path and any missing ancestors.
func (c *Container) CreateDirectory(path string) error {
	return c.FS.CreateDirectory(path)
}

// DeleteDirectory removes the empty directory at path.
func (c *Container) DeleteDirectory(path string) error {
	return c.FS.DeleteDirectory(path)
}

// ListDirectory returns the immediate entries of path.
func (c *Container) ListDirectory(path string) ([]string, error) {
	return c.FS.ListDirectory(path)
}

// Exists reports whether path names a file or directory.
func (c *Container) Exists(path string) bool {
	return c.FS.Exists(path)
}

// IsDirectory reports whether path names a directory.
func (c *Container) IsDirectory(path string) bool {
	return c.FS.IsDirectory(path)
}
