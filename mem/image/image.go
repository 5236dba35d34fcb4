// Package image loads a guest RAM image from disk into a mem.Directory.
// It reads the source file through a memory mapping, then shards the work
// of copying it into page-sized host buffers across GOMAXPROCS goroutines
// joined by an errgroup.Group, the usual shard-then-merge shape for
// parallel batch scanning.
package image

import (
	"fmt"
	"runtime"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/avalonos/coreemu/mem"
)

// Image is a memory-mapped guest RAM image opened for reading.
// golang.org/x/exp/mmap.ReaderAt exposes only a ReadAt/At surface, not
// the raw mapped pointer, so Load drains pages through that surface
// into per-page buffers owned by this Image rather than installing the
// kernel's own mapping directly. After Load, those buffers hold a copy of
// the whole file.
type Image struct {
	r     *mmap.ReaderAt
	pages [][]byte
	size  int
}

// Open memory-maps path for reading. The caller must call Close once the
// image is no longer needed by any Directory it was loaded into.
func Open(path string) (*Image, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}
	return &Image{r: r, size: r.Len()}, nil
}

// Len returns the image size in bytes.
func (img *Image) Len() int { return img.size }

// Close unmaps the underlying file. Pages already installed into a
// Directory via Load remain valid: they are Image-owned buffers, not
// slices of the mapping itself.
func (img *Image) Close() error {
	return img.r.Close()
}

// ReadAll drains the whole image into one contiguous buffer, for callers
// that want a single host pointer to back a region mapping rather than
// Load's per-page Directory installs.
func (img *Image) ReadAll() ([]byte, error) {
	buf := make([]byte, img.size)
	if _, err := img.r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("image: read all: %w", err)
	}
	return buf, nil
}

// Load installs img as the backing store for a contiguous guest region
// starting at guestBase, one page-sized buffer per guest page, sharding
// the drain-and-install work across runtime.GOMAXPROCS(-1) goroutines.
// Each shard owns a disjoint run of pages: it reads its own pages
// through img.r.ReadAt into buffers it allocates, then installs them
// into dir, so no goroutine ever touches another's page buffers.
func Load(img *Image, dir *mem.Directory, profile mem.Profile, guestBase mem.VAddress) error {
	pageSize := uint32(1) << profile.PageSizeBits
	total := uint32(img.size)
	if total == 0 {
		return nil
	}

	numPages := (total + pageSize - 1) / pageSize
	img.pages = make([][]byte, numPages)

	shards := runtime.GOMAXPROCS(-1)
	if uint32(shards) > numPages {
		shards = 1
	}
	pagesPerShard := numPages / uint32(shards)
	if pagesPerShard == 0 {
		pagesPerShard = 1
	}

	var eg errgroup.Group
	for s := 0; s < shards; s++ {
		s := s
		eg.Go(func() error {
			startPage := uint32(s) * pagesPerShard
			endPage := startPage + pagesPerShard
			if s == shards-1 || endPage > numPages {
				endPage = numPages
			}
			for p := startPage; p < endPage; p++ {
				off := p * pageSize
				if off >= total {
					break
				}
				n := pageSize
				if off+n > total {
					n = total - off
				}
				buf := make([]byte, pageSize)
				if _, err := img.r.ReadAt(buf[:n], int64(off)); err != nil {
					return fmt.Errorf("image: read page %d: %w", p, err)
				}
				img.pages[p] = buf
				dir.InstallPage(guestBase+off, mem.HostPtr(hostPointer(buf)))
			}
			return nil
		})
	}
	return eg.Wait()
}
