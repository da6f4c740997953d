// Package imagebundle implements LoadBundle: importing an OCI image's
// layers into a Container's virtual file system, per SPEC_FULL.md §6.9.
package imagebundle

import (
	"archive/tar"
	"context"
	"fmt"
	"io"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/banksean/vcontainer/vfs"
	"github.com/banksean/vcontainer/vpath"
)

// Import pulls the OCI image named by ref and unpacks every regular file
// from its layers, lowest to highest, into fs under mountPath. Later
// layers overwrite earlier ones at the same path. OCI whiteout entries
// (".wh." files) are not interpreted: they are written as ordinary files,
// and paths a later layer deletes are kept.
func Import(ctx context.Context, ref string, fs *vfs.FS, mountPath string) error {
	r, err := name.ParseReference(ref)
	if err != nil {
		return fmt.Errorf("imagebundle: parse %q: %w", ref, err)
	}
	img, err := remote.Image(r, remote.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("imagebundle: fetch %q: %w", ref, err)
	}
	layers, err := img.Layers()
	if err != nil {
		return fmt.Errorf("imagebundle: layers of %q: %w", ref, err)
	}
	for i, l := range layers {
		if err := extractLayer(l, fs, mountPath); err != nil {
			return fmt.Errorf("imagebundle: layer %d of %q: %w", i, ref, err)
		}
	}
	return nil
}

func extractLayer(l v1.Layer, fs *vfs.FS, mountPath string) error {
	rc, err := l.Uncompressed()
	if err != nil {
		return fmt.Errorf("uncompress: %w", err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		target := vpath.Join(mountPath, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.CreateDirectory(target); err != nil {
				return err
			}
		case tar.TypeReg:
			content, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("read %s: %w", hdr.Name, err)
			}
			if err := fs.WriteFile(target, content); err != nil {
				return err
			}
		default:
			// Symlinks, devices, and other non-regular entries have no
			// useful representation in a purely virtual, byte-slice-backed
			// filesystem; skip them.
		}
	}
}
