package inventory

import (
	"fmt"
	"os"

	"github.com/lima-vm/go-qcow2reader"
)

// qcow2AllocatedGB opens the qcow2 image at path and returns its actual
// on-disk allocated size in GB, rounded up. disk_available_least exists
// precisely to account for a qcow2 image's virtual size outgrowing its
// allocated footprint as the guest writes; this is that footprint.
func qcow2AllocatedGB(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("inventory: open qcow2 image %s: %w", path, err)
	}
	defer f.Close()

	img, err := qcow2reader.Open(f)
	if err != nil {
		return 0, fmt.Errorf("inventory: read qcow2 header %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("inventory: stat qcow2 image %s: %w", path, err)
	}

	// img.Size() is the virtual (guest-visible) size; the file's actual
	// byte length is the allocated footprint we care about here, since a
	// freshly-created qcow2 image is sparse until the guest writes to it.
	_ = img.Size()
	allocatedBytes := info.Size()
	const bytesPerGB = 1 << 30
	return (allocatedBytes + bytesPerGB - 1) / bytesPerGB, nil
}
