package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vkngwrapper/mediamem/backend/simulated"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/vsm"
	"golang.org/x/exp/slog"
)

const (
	bitstreamBufferSize  = 256 * 1024
	sliceParameterSize   = 4 * 1024
	commandBufferSize    = 64 * 1024
	bitstreamPayloadSize = 1024
)

func newSimulateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a decode workload and print allocator statistics",
		Long: `Simulate runs a decode-style workload against the simulated backend.

Every frame creates a bitstream buffer, a slice parameter buffer and a command buffer
inside a per-frame context, decodes into a new surface, reads the surface back through
a CPU lock and destroys the frame context. Decoded surfaces are kept as reference frames
until they fall out of the reference window. The allocator statistics are printed as
JSON when the workload finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runSimulate(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int("frames", 0, "number of frames to decode")
	flags.Int("width", 0, "frame width")
	flags.Int("height", 0, "frame height")
	flags.String("format", "", "decode target pixel format")
	flags.Int("references", 0, "number of decoded frames kept alive as references")
	flags.Bool("detailed", false, "list every live backend object in the statistics")
	flags.Int("device-budget", 0, "device pool budget in bytes, zero is unlimited")
	flags.Int("system-budget", 0, "system pool budget in bytes, zero is unlimited")

	v.BindPFlag("simulate.frames", flags.Lookup("frames"))
	v.BindPFlag("simulate.width", flags.Lookup("width"))
	v.BindPFlag("simulate.height", flags.Lookup("height"))
	v.BindPFlag("simulate.format", flags.Lookup("format"))
	v.BindPFlag("simulate.references", flags.Lookup("references"))
	v.BindPFlag("simulate.detailed", flags.Lookup("detailed"))
	v.BindPFlag("budgets.device", flags.Lookup("device-budget"))
	v.BindPFlag("budgets.system", flags.Lookup("system-budget"))

	return cmd
}

func runSimulate(cmd *cobra.Command, cfg *Config) error {
	platform, err := cfg.Platform()
	if err != nil {
		return err
	}

	format, ok := hw.FormatByName(cfg.Simulate.Format)
	if !ok {
		return errors.Mark(errors.Newf("unknown format %q", cfg.Simulate.Format), memutils.ErrUnsupportedFormat)
	}

	if cfg.Simulate.Frames < 0 || cfg.Simulate.References < 0 {
		return errors.Mark(errors.New("frames and references cannot be negative"), memutils.ErrInvalidArgument)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	memoryBackend := simulated.New(logger, cfg.BackendOptions())

	var flags vsm.CreateFlags
	if cfg.Simulate.Detailed {
		flags |= vsm.AllocatorCreateVerboseTracking
	}

	allocator, err := vsm.New(logger, memoryBackend, platform, vsm.CreateOptions{
		Flags:         flags,
		ServerContext: cfg.Server,
	})
	if err != nil {
		return err
	}

	workload := &decodeWorkload{
		allocator: allocator,
		format:    format,
		width:     cfg.Simulate.Width,
		height:    cfg.Simulate.Height,
	}

	for frame := 0; frame < cfg.Simulate.Frames; frame++ {
		err = workload.decodeFrame(frame)
		if err != nil {
			return errors.CombineErrors(errors.Wrapf(err, "frame %d", frame), allocator.Close())
		}

		for len(workload.references) > cfg.Simulate.References {
			err = allocator.Destroy(workload.references[0])
			if err != nil {
				return errors.CombineErrors(err, allocator.Close())
			}
			workload.references = workload.references[1:]
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), allocator.BuildStatsString(cfg.Simulate.Detailed))

	for _, reference := range workload.references {
		err = errors.CombineErrors(err, allocator.Destroy(reference))
	}
	err = errors.CombineErrors(err, allocator.Close())

	counters := memoryBackend.Counters()
	logger.Info("simulation finished",
		slog.Int("frames", cfg.Simulate.Frames),
		slog.Int("allocations", counters.Allocations),
		slog.Int("frees", counters.Frees),
		slog.Int("forwardBlits", counters.ForwardBlits),
		slog.Int("reverseBlits", counters.ReverseBlits),
		slog.Int("liveObjects", memoryBackend.LiveObjects()),
	)

	return err
}

type decodeWorkload struct {
	allocator *vsm.Allocator
	format    hw.Format
	width     int
	height    int

	references []vsm.Handle
}

func (w *decodeWorkload) decodeFrame(frame int) error {
	context, err := w.allocator.CreateContext(fmt.Sprintf("frame %d", frame))
	if err != nil {
		return err
	}

	err = w.submit(frame, context)
	return errors.CombineErrors(err, w.allocator.Destroy(context))
}

func (w *decodeWorkload) submit(frame int, context vsm.Handle) error {
	bitstream, err := w.allocator.CreateBuffer(vsm.BufferCreateInfo{
		Name:  "bitstream",
		Kind:  vsm.BufferBitstream,
		Size:  bitstreamBufferSize,
		Usage: hw.UsageDecode | hw.UsageCPUAccess,
		Owner: context,
	})
	if err != nil {
		return err
	}

	_, err = w.allocator.CreateBuffer(vsm.BufferCreateInfo{
		Name:  "slice parameters",
		Kind:  vsm.BufferSliceParameter,
		Size:  sliceParameterSize,
		Owner: context,
	})
	if err != nil {
		return err
	}

	_, err = w.allocator.CreateBuffer(vsm.BufferCreateInfo{
		Name:  "commands",
		Kind:  vsm.BufferCommand,
		Size:  commandBufferSize,
		Owner: context,
	})
	if err != nil {
		return err
	}

	payload, err := w.allocator.Lock(bitstream, vsm.AccessWrite)
	if err != nil {
		return err
	}
	for i := 0; i < bitstreamPayloadSize && i < len(payload); i++ {
		payload[i] = byte(frame + i)
	}
	err = w.allocator.Unlock(bitstream)
	if err != nil {
		return err
	}

	target, err := w.allocator.CreateSurface(vsm.SurfaceCreateInfo{
		Name:   fmt.Sprintf("decode target %d", frame),
		Format: w.format,
		Width:  w.width,
		Height: w.height,
		Usage:  hw.UsageDecode,
	})
	if err != nil {
		return err
	}
	w.references = append(w.references, target)

	// Read the decoded frame back the way a frame dump would
	_, err = w.allocator.Lock(target, vsm.AccessRead)
	if err != nil {
		return err
	}
	return w.allocator.Unlock(target)
}
