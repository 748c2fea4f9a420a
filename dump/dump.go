// Package dump runs one pass over a process: open it, list its readable
// regions, copy each one and release the process again.
package dump

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"regiondump/format"
	"regiondump/process"
	"regiondump/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "dump"))

// Options controls which regions a run reads and how
type Options struct {
	// MaxRegionSize skips regions larger than this many bytes, 0 reads all
	MaxRegionSize uint64

	// Parallel is the number of concurrent readers, values below 1 mean 1.
	// It is clamped to 1 for backends without shared reads.
	Parallel int

	// Filter, if set, must return true for a region to be read
	Filter func(memory_map.MemoryRegion) bool
}

// Pair is a region together with the bytes read from it
type Pair struct {
	Region  memory_map.MemoryRegion
	Content process.RegionContent
}

type Stats struct {
	Listed   int
	Read     int
	Short    int
	Failed   int
	Skipped  int
	Bytes    uint64
	Duration time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d regions listed, %d read (%d short, %s), %d failed, %d skipped in %s",
		s.Listed, s.Read, s.Short, humanize.Bytes(s.Bytes), s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))
}

// Result is everything one run collected. Regions and Failed are in
// ascending address order.
type Result struct {
	PID            process.ProcessID
	Regions        []Pair
	Failed         []process.RegionError
	Skipped        []memory_map.MemoryRegion
	EnumerationErr error
	Stats          Stats
}

// Partial reports whether the address space walk stopped early or any
// region could not be read.
func (r *Result) Partial() bool {
	return r.EnumerationErr != nil || len(r.Failed) > 0
}

// Document converts the result into its serialized form. Failed regions
// become records carrying the error in place of data.
func (r *Result) Document(name, platform string) *format.Document {
	type entry struct {
		addr   uint64
		record format.Record
	}

	entries := make([]entry, 0, len(r.Regions)+len(r.Failed))
	for _, p := range r.Regions {
		entries = append(entries, entry{p.Region.Address, format.NewRecord(p.Region, p.Content.Data)})
	}
	for _, f := range r.Failed {
		entries = append(entries, entry{f.Region.Address, format.FailedRecord(f.Region, f.Err)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].addr < entries[j].addr
	})

	doc := &format.Document{
		PID:      int(r.PID),
		Name:     name,
		Platform: platform,
		Regions:  make([]format.Record, 0, len(entries)),
	}
	if r.EnumerationErr != nil {
		doc.EnumerationError = r.EnumerationErr.Error()
	}
	for _, e := range entries {
		doc.Regions = append(doc.Regions, e.record)
	}

	return doc
}

type slot struct {
	done    bool
	content process.RegionContent
	err     error
}

// Run dumps pid through b. Open failures and listing failures other than
// ErrEnumerationFailed are fatal and return no result. A partial listing,
// failed reads and cancellation of ctx all return the result collected so
// far; cancellation also returns ctx.Err(). The handle is closed before Run
// returns on every path.
func Run(ctx context.Context, b process.Backend, pid process.ProcessID, opts Options) (res *Result, err error) {
	start := time.Now()

	h, err := b.Open(pid)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("Closing process ", pid, ": ", cerr)
			if err == nil {
				err = fmt.Errorf("closing process %d: %w", pid, cerr)
			}
		}
	}()

	regions, err := b.ListRegions(h)
	if err != nil && !errors.Is(err, process.ErrEnumerationFailed) {
		return nil, err
	}

	res = &Result{PID: pid, EnumerationErr: err}
	res.Stats.Listed = len(regions)
	if err != nil {
		log.Warn("Process ", pid, ": continuing with ", len(regions), " regions: ", err)
	}

	var todo []memory_map.MemoryRegion
	for _, region := range regions {
		if opts.Filter != nil && !opts.Filter(region) {
			res.Skipped = append(res.Skipped, region)
			continue
		}
		if opts.MaxRegionSize > 0 && region.Size > opts.MaxRegionSize {
			log.Infoln("Skipping large region at", process.ProcessMemoryAddress(region.Address), "size", humanize.Bytes(region.Size))
			res.Skipped = append(res.Skipped, region)
			continue
		}
		todo = append(todo, region)
	}

	parallel := opts.Parallel
	if parallel < 1 || !b.SharedReads() {
		parallel = 1
	}

	slots := make([]slot, len(todo))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, region := range todo {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			content, err := b.ReadRegion(h, region)
			slots[i] = slot{done: true, content: content, err: err}
			return nil
		})
	}
	g.Wait()

	for i, s := range slots {
		region := todo[i]
		switch {
		case !s.done:
		case s.err != nil:
			log.Debugln("Read failed at", process.ProcessMemoryAddress(region.Address), s.err)
			res.Failed = append(res.Failed, process.RegionError{Region: region, Err: s.err})
		default:
			if s.content.Short(region) {
				res.Stats.Short++
			}
			res.Stats.Bytes += uint64(len(s.content.Data))
			res.Regions = append(res.Regions, Pair{Region: region, Content: s.content})
		}
	}

	res.Stats.Read = len(res.Regions)
	res.Stats.Failed = len(res.Failed)
	res.Stats.Skipped = len(res.Skipped)
	res.Stats.Duration = time.Since(start)

	log.Infoln("Process", pid, "dumped:", res.Stats)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("dump of process %d interrupted: %w", pid, err)
	}

	return res, nil
}
