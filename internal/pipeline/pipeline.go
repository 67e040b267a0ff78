// Package pipeline runs the shared decode and aggregation stages over sets
// of captures and finishes them in one of two modes: differential voting or
// a zero-frequency image.
//
// Captures are reached through Source, so the pipeline itself never opens
// files. Distinct captures are decoded concurrently; results keep input
// order.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sramlab/pufrecon/internal/aggregate"
	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/logging"
	"github.com/sramlab/pufrecon/internal/puferr"
	"github.com/sramlab/pufrecon/internal/vote"
)

// Source yields the records of one capture.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]bitstream.Record, error)
}

// WholeCapture selects the full decoded stream instead of a named region.
// Segment export files hold exactly one segment and use it.
const WholeCapture = ""

// Mode names the two ways a run can finish.
type Mode int

const (
	// Differential votes aged against fresh weights.
	Differential Mode = iota
	// Distribution turns one weight vector into display intensities.
	Distribution
)

func (m Mode) String() string {
	switch m {
	case Differential:
		return "differential"
	case Distribution:
		return "distribution"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Pipeline holds the geometry and execution settings shared by runs.
type Pipeline struct {
	geom    bitstream.Geometry
	workers int
	log     *logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers caps concurrent decodes and aggregation shards. n <= 0 means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithLogger sets the logger used for stage boundaries.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Pipeline for the given geometry.
func New(geom bitstream.Geometry, opts ...Option) *Pipeline {
	p := &Pipeline{geom: geom, log: logging.Noop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Geometry returns the geometry runs are split with.
func (p *Pipeline) Geometry() bitstream.Geometry { return p.geom }

// Capture is one decoded source.
type Capture struct {
	Name string
	Full bitstream.BitVector
	geom bitstream.Geometry
}

// Split cuts the capture into the pipeline's regions.
func (c Capture) Split() (bitstream.Split, error) {
	return c.geom.SplitRegions(c.Full)
}

// Bits returns the selected region, or the whole stream for WholeCapture.
// The second result is the number of zero bits added to fill the region.
func (c Capture) Bits(region string) (bitstream.BitVector, int, error) {
	if region == WholeCapture {
		return c.Full, 0, nil
	}
	split, err := c.Split()
	if err != nil {
		return bitstream.BitVector{}, 0, fmt.Errorf("%s: %w", c.Name, err)
	}
	r, ok := split.Region(region)
	if !ok {
		return bitstream.BitVector{}, 0, fmt.Errorf("capture %s has no region %q", c.Name, region)
	}
	return r.Bits, r.Padded, nil
}

// Decode loads and decodes every source. Any failure aborts the whole run.
func (p *Pipeline) Decode(ctx context.Context, sources []Source) ([]Capture, error) {
	out := make([]Capture, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for i, src := range sources {
		g.Go(func() error {
			recs, err := src.Records(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			full, err := bitstream.Decode(recs)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			discarded := max(0, full.Len()-p.geom.TotalBits())
			p.log.LogDecode(gctx, src.Name(), full.Len(), 0, discarded)
			out[i] = Capture{Name: src.Name(), Full: full, geom: p.geom}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregated is a weight vector together with how much of it is padding.
type Aggregated struct {
	Weights aggregate.WeightVector
	Padded  int // zero bits added across all samples
}

// Aggregate decodes sources and sums the selected region.
func (p *Pipeline) Aggregate(ctx context.Context, sources []Source, region string, cond aggregate.Condition) (Aggregated, error) {
	if len(sources) == 0 {
		return Aggregated{}, puferr.ErrEmptySampleSet
	}
	caps, err := p.Decode(ctx, sources)
	if err != nil {
		return Aggregated{}, err
	}
	return p.aggregateCaptures(ctx, caps, region, cond)
}

func (p *Pipeline) aggregateCaptures(ctx context.Context, caps []Capture, region string, cond aggregate.Condition) (Aggregated, error) {
	samples := make([]bitstream.BitVector, len(caps))
	padded := 0
	for i, c := range caps {
		bits, pad, err := c.Bits(region)
		if err != nil {
			return Aggregated{}, err
		}
		if pad > 0 {
			p.log.LogDecode(ctx, c.Name, c.Full.Len(), pad, 0)
		}
		samples[i] = bits
		padded += pad
	}
	set, err := aggregate.NewSampleSet(string(cond), region, cond, samples)
	if err != nil {
		return Aggregated{}, err
	}
	w, err := set.Weights(p.workers)
	if err != nil {
		return Aggregated{}, err
	}
	p.log.LogAggregate(ctx, string(cond), w.Samples, w.Len())
	return Aggregated{Weights: w, Padded: padded}, nil
}

// Request describes one run. Fresh feeds both modes; Aged is only used in
// Differential mode.
type Request struct {
	Mode   Mode
	Region string
	Fresh  []Source
	Aged   []Source
}

// Result carries whatever the selected mode produced.
type Result struct {
	Mode        Mode
	Region      string
	Samples     int
	Padded      int
	Votes       vote.Vector // Differential
	Weights     aggregate.WeightVector
	Intensities []uint8 // Distribution
}

// Run executes a request.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	switch req.Mode {
	case Differential:
		return p.differential(ctx, req)
	case Distribution:
		return p.distribution(ctx, req)
	}
	return Result{}, fmt.Errorf("unknown mode %v", req.Mode)
}

func (p *Pipeline) differential(ctx context.Context, req Request) (Result, error) {
	if len(req.Fresh) != len(req.Aged) {
		return Result{}, fmt.Errorf("%d new and %d aged captures: %w", len(req.Fresh), len(req.Aged), puferr.ErrSampleCountMismatch)
	}
	fresh, err := p.Aggregate(ctx, req.Fresh, req.Region, aggregate.ConditionNew)
	if err != nil {
		return Result{}, fmt.Errorf("new captures: %w", err)
	}
	aged, err := p.Aggregate(ctx, req.Aged, req.Region, aggregate.ConditionAged)
	if err != nil {
		return Result{}, fmt.Errorf("aged captures: %w", err)
	}
	votes, err := vote.Differential(aged.Weights, fresh.Weights)
	if err != nil {
		return Result{}, err
	}
	st := votes.Stats()
	p.log.WithRegion(req.Region).LogVotes(ctx, Differential.String(), st.Zeros, st.Ones, st.Ambiguous)
	return Result{
		Mode:    Differential,
		Region:  req.Region,
		Samples: fresh.Weights.Samples,
		Padded:  fresh.Padded + aged.Padded,
		Votes:   votes,
	}, nil
}

func (p *Pipeline) distribution(ctx context.Context, req Request) (Result, error) {
	agg, err := p.Aggregate(ctx, req.Fresh, req.Region, aggregate.ConditionGeneric)
	if err != nil {
		return Result{}, err
	}
	return distributionResult(req.Region, agg)
}

func distributionResult(region string, agg Aggregated) (Result, error) {
	img, err := vote.Intensities(agg.Weights)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Mode:        Distribution,
		Region:      region,
		Samples:     agg.Weights.Samples,
		Padded:      agg.Padded,
		Weights:     agg.Weights,
		Intensities: img,
	}, nil
}

// Distributions decodes sources once and produces a Distribution result for
// each region, in the order given.
func (p *Pipeline) Distributions(ctx context.Context, sources []Source, regions []string) ([]Result, error) {
	if len(sources) == 0 {
		return nil, puferr.ErrEmptySampleSet
	}
	caps, err := p.Decode(ctx, sources)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(regions))
	for _, region := range regions {
		agg, err := p.aggregateCaptures(ctx, caps, region, aggregate.ConditionGeneric)
		if err != nil {
			return nil, err
		}
		res, err := distributionResult(region, agg)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Pair is a fresh/aged source group for one vote source, such as one
// segment or one chip.
type Pair struct {
	Label  string
	Region string
	Fresh  []Source
	Aged   []Source
}

// Consensus runs a differential vote per pair and combines them by
// majority. The per-pair vectors are returned alongside the result.
func (p *Pipeline) Consensus(ctx context.Context, pairs []Pair) (vote.Vector, []vote.Vector, error) {
	if len(pairs) == 0 {
		return nil, nil, puferr.ErrEmptyInput
	}
	per := make([]vote.Vector, 0, len(pairs))
	for _, pr := range pairs {
		res, err := p.Run(ctx, Request{Mode: Differential, Region: pr.Region, Fresh: pr.Fresh, Aged: pr.Aged})
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", pr.Label, err)
		}
		per = append(per, res.Votes)
	}
	combined, err := vote.Combine(per...)
	if err != nil {
		return nil, nil, err
	}
	st := combined.Stats()
	p.log.LogVotes(ctx, "consensus", st.Zeros, st.Ones, st.Ambiguous)
	return combined, per, nil
}

// Composite runs a differential vote per pair and concatenates the vectors
// in pair order, the layout used when several chips are recovered into one
// image.
func (p *Pipeline) Composite(ctx context.Context, pairs []Pair) (vote.Vector, int, error) {
	if len(pairs) == 0 {
		return nil, 0, puferr.ErrEmptyInput
	}
	parts := make([]vote.Vector, 0, len(pairs))
	padded := 0
	for _, pr := range pairs {
		res, err := p.Run(ctx, Request{Mode: Differential, Region: pr.Region, Fresh: pr.Fresh, Aged: pr.Aged})
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", pr.Label, err)
		}
		parts = append(parts, res.Votes)
		padded += res.Padded
	}
	return vote.Concat(parts...), padded, nil
}
