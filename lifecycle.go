package vcontainer

import (
	"context"

	"github.com/banksean/vcontainer/imagebundle"
	"github.com/banksean/vcontainer/store"
)

// LoadBundle imports an OCI image's layers into the container's virtual
// file system under mountPath, per SPEC_FULL.md §6.9.
func (c *Container) LoadBundle(ctx context.Context, ref, mountPath string) error {
	return imagebundle.Import(ctx, ref, c.FS, mountPath)
}

// UseStore attaches a persistence backend for Snapshot/Restore. A
// Container with no store attached treats both as no-ops, per
// SPEC_FULL.md §6.9.
func (c *Container) UseStore(st *store.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = st
}

// Snapshot persists the current virtual file system under this
// Container's InstanceID. A no-op if no store is attached.
func (c *Container) Snapshot(ctx context.Context) error {
	c.mu.Lock()
	st := c.store
	c.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Snapshot(ctx, c.InstanceID, c.FS)
}

// Restore repopulates the virtual file system from the snapshot stored
// under this Container's InstanceID. A no-op if no store is attached.
func (c *Container) Restore(ctx context.Context) error {
	c.mu.Lock()
	st := c.store
	c.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Restore(ctx, c.InstanceID, c.FS)
}
