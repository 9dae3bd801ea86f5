package loader

import (
	"context"
	"sync"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/eapache/go-resiliency/deadline"
	"github.com/hashicorp/go-multierror"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// ErrTimedOut is returned when a decode exceeds Config.DecodeTimeout.
var ErrTimedOut = deadline.ErrTimedOut

// Source is one class file's bytes and the name it is reported under.
type Source struct {
	Name string
	Data []byte
}

// SourceError is a failed decode of one Source as collected by DecodeAll.
type SourceError struct {
	Name string
	Err  error
}

func (e *SourceError) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// Result describes one successfully decoded source.
type Result struct {
	Name   string
	Size   int
	Digest [blake2b.Size256]byte
	Class  *classfile.ClassFile
}

// decoder wraps classfile decoding with the timeout, logging and metrics of a
// Config. It holds no per-decode state and is safe for concurrent use.
type decoder struct {
	conf     *Config
	decoded  metrics.Counter
	failed   metrics.Counter
	size     metrics.Histogram
	poolSize metrics.Histogram
}

func newDecoder(conf *Config) *decoder {
	r := conf.MetricRegistry
	return &decoder{
		conf:     conf,
		decoded:  metrics.GetOrRegisterCounter(MetricClassesDecoded, r),
		failed:   metrics.GetOrRegisterCounter(MetricDecodeErrors, r),
		size:     getOrRegisterHistogram(MetricClassSize, r),
		poolSize: getOrRegisterHistogram(MetricConstantPoolSize, r),
	}
}

func (d *decoder) decode(src Source) (*Result, error) {
	var cf *classfile.ClassFile
	run := func(<-chan struct{}) error {
		var err error
		cf, err = d.conf.Options.DecodeExact(src.Data)
		return err
	}

	var err error
	if d.conf.DecodeTimeout > 0 {
		err = deadline.New(d.conf.DecodeTimeout).Run(run)
	} else {
		err = run(nil)
	}
	if err != nil {
		d.failed.Inc(1)
		d.conf.Logger.Debug("decode failed", zap.String("class", src.Name), zap.Error(err))
		return nil, err
	}

	d.decoded.Inc(1)
	d.size.Update(int64(len(src.Data)))
	d.poolSize.Update(int64(len(cf.ConstantPool)))
	d.conf.Logger.Debug("decoded class",
		zap.String("class", src.Name),
		zap.Int("size", len(src.Data)),
		zap.Uint16("major_version", cf.MajorVersion))

	return &Result{
		Name:   src.Name,
		Size:   len(src.Data),
		Digest: blake2b.Sum256(src.Data),
		Class:  cf,
	}, nil
}

// DecodeAll decodes sources on at most conf.Workers goroutines. Results for
// the sources that decoded are returned in input order; every failure is
// collected as a *SourceError into the returned *multierror.Error.
// Cancelling ctx stops scheduling new decodes and DecodeAll returns ctx.Err().
func DecodeAll(ctx context.Context, conf *Config, sources []Source) ([]*Result, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	d := newDecoder(conf)

	results := make([]*Result, len(sources))
	var (
		mu   sync.Mutex
		merr *multierror.Error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conf.Workers)
	for i, src := range sources {
		i, src := i, src
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := d.decode(src)
			if err != nil {
				mu.Lock()
				merr = multierror.Append(merr, &SourceError{Name: src.Name, Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	conf.Logger.Info("batch decoded",
		zap.Int("sources", len(sources)),
		zap.Int("decoded", len(out)),
		zap.Int("failed", len(sources)-len(out)))

	return out, merr.ErrorOrNil()
}
