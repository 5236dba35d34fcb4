// Command mmubench drives sized reads and writes through an MMU backed
// by a guest RAM image, reporting throughput the way cmd/goat-sim
// reports allocation-trace replay progress.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/avalonos/coreemu/cmd/internal/spinner"
	"github.com/avalonos/coreemu/cpu"
	"github.com/avalonos/coreemu/mem"
	"github.com/avalonos/coreemu/mem/image"
	"github.com/avalonos/coreemu/system"
)

var (
	modelName string
	guestBase uint
	iters     uint64
	model     mem.ModelType
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Benchmarks sized MMU read/write throughput against a guest RAM image.\n")
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <ram-image-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&modelName, "model", "multiple", "MMU model: multiple or flexible")
	flag.UintVar(&guestBase, "base", 0x10000, "guest virtual address the image is mapped at")
	flag.Uint64Var(&iters, "iters", 1<<20, "number of 32-bit read/write pairs to benchmark")
}

func checkFlags() error {
	if flag.NArg() != 1 {
		return errors.New("incorrect number of arguments")
	}
	switch modelName {
	case "multiple":
		model = mem.Multiple
	case "flexible":
		model = mem.Flexible
	default:
		return fmt.Errorf("-model must be one of: multiple, flexible (got %q)", modelName)
	}
	return nil
}

// loopbackCore is a cpu.Core that does nothing but satisfy the interface:
// mmubench drives the MMU directly, so it never needs the CPU to call
// back into the sized-I/O hooks.
type loopbackCore struct{}

func (loopbackCore) Install(cpu.Hooks)                                  {}
func (loopbackCore) MapBackingMem(cpu.VAddr, uint32, uintptr, cpu.Prot) {}
func (loopbackCore) UnmapMemory(cpu.VAddr, uint32)                      {}

func run() error {
	img, err := image.Open(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("opening image: %v", err)
	}
	defer img.Close()

	alloc := mem.NewAllocator(4)
	core := loopbackCore{}
	conf := mem.Config{}

	mmu, err := system.NewMMU(alloc, core, conf, 12, model)
	if err != nil {
		return fmt.Errorf("constructing MMU: %v", err)
	}

	profile := mem.ProfileFor(12)
	base := mem.VAddress(guestBase)

	// Exercise image.Load's sharded per-page drain path against a
	// throwaway Directory, independent of the region this benchmark
	// actually reads and writes below.
	warmup := mem.NewDirectory(profile, alloc)
	fmt.Println("Loading image (warmup pass over the sharded page loader)...")
	if err := image.Load(img, warmup, profile, base); err != nil {
		return fmt.Errorf("loading image: %v", err)
	}

	buf, err := img.ReadAll()
	if err != nil {
		return fmt.Errorf("reading image: %v", err)
	}
	host := mem.HostPtr(uintptr(unsafe.Pointer(&buf[0])))

	if err := mmu.MapRegion(mem.CurrentASID, base, uint32(len(buf)), host, mem.Read|mem.Write); err != nil {
		return fmt.Errorf("mapping region: %v", err)
	}

	var done uint64
	spinner.Start(func() float64 {
		return float64(done) / float64(iters)
	}, spinner.Format("Benchmarking... %.1f%%"))

	start := time.Now()
	var v uint32
	for i := uint64(0); i < iters; i++ {
		addr := base + mem.VAddress((i%uint64(len(buf)/4))*4)
		mmu.Write32(addr, &v)
		mmu.Read32(addr, &v)
		v++
		done = i
	}
	elapsed := time.Since(start)
	spinner.Stop()

	stats := mem.NewStats()
	mmu.RegisterStats(stats)
	fmt.Printf("%d iterations in %s (%.1f ns/op)\n", iters, elapsed, float64(elapsed.Nanoseconds())/float64(iters))
	fmt.Printf("reads=%d writes=%d read_faults=%d write_faults=%d\n", stats.Reads, stats.Writes, stats.ReadFaults, stats.WriteFaults)
	for _, name := range stats.OtherStats() {
		fmt.Printf("%s=%d\n", name, stats.GetOther(name))
	}
	return nil
}

func main() {
	flag.Parse()
	if err := checkFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
