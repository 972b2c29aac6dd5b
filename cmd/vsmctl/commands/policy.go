package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vkngwrapper/mediamem/compression"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
	"github.com/vkngwrapper/mediamem/policy"
)

type policyOptions struct {
	resource  string
	format    string
	tiling    string
	usage     []string
	category  string
	preferred string
}

func newPolicyCommand(v *viper.Viper) *cobra.Command {
	var options policyOptions

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print the placement and compression decision for one resource",
		Long: `Policy evaluates the memory placement rules and the compression rules for a single
resource description on the configured platform and prints the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runPolicy(cmd, cfg, &options)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&options.resource, "resource", "surface", "resource type: buffer, surface or volume")
	flags.StringVar(&options.format, "format", "NV12", "pixel format")
	flags.StringVar(&options.tiling, "tiling", "TilingY", "tiling: TilingNone, TilingX or TilingY")
	flags.StringSliceVar(&options.usage, "usage", nil, "usage hints, e.g. UsageDecode,UsageCPUAccess")
	flags.StringVar(&options.category, "category", "CategoryGeneric", "resource category")
	flags.StringVar(&options.preferred, "preferred", "PoolGeneric", "preferred pool")

	return cmd
}

func resourceTypeByName(name string) (policy.ResourceType, bool) {
	switch name {
	case "buffer":
		return policy.ResourceBuffer1D, true
	case "surface":
		return policy.ResourceSurface2D, true
	case "volume":
		return policy.ResourceVolume3D, true
	}
	return policy.ResourceBuffer1D, false
}

func (o *policyOptions) descriptor() (policy.ResourceDescriptor, hw.Pool, error) {
	var desc policy.ResourceDescriptor

	resourceType, ok := resourceTypeByName(o.resource)
	if !ok {
		return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown resource type %q", o.resource), memutils.ErrInvalidArgument)
	}

	format, ok := hw.FormatByName(o.format)
	if !ok {
		return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown format %q", o.format), memutils.ErrUnsupportedFormat)
	}

	tiling, ok := hw.TilingByName(o.tiling)
	if !ok {
		return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown tiling %q", o.tiling), memutils.ErrInvalidArgument)
	}

	var usage hw.UsageFlags
	for _, name := range splitNames(o.usage) {
		flag, ok := hw.UsageByName(name)
		if !ok {
			return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown usage %q", name), memutils.ErrInvalidArgument)
		}
		usage |= flag
	}

	category, ok := hw.CategoryByName(o.category)
	if !ok {
		return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown category %q", o.category), memutils.ErrInvalidArgument)
	}

	preferred, ok := hw.PoolByName(o.preferred)
	if !ok {
		return desc, hw.PoolGeneric, errors.Mark(errors.Newf("unknown pool %q", o.preferred), memutils.ErrInvalidArgument)
	}

	if resourceType == policy.ResourceBuffer1D {
		format = hw.FormatBuffer
		tiling = hw.TilingNone
	}

	desc = policy.ResourceDescriptor{
		Type:     resourceType,
		Category: category,
		Format:   format,
		Tiling:   tiling,
		Usage:    usage,
	}
	return desc, preferred, nil
}

func runPolicy(cmd *cobra.Command, cfg *Config, options *policyOptions) error {
	platform, err := cfg.Platform()
	if err != nil {
		return err
	}

	desc, preferred, err := options.descriptor()
	if err != nil {
		return err
	}

	compressionDecision := compression.ShouldCompress(&platform, desc.Format, desc.Tiling, desc.Usage)
	desc.Compressed = compressionDecision.Enabled

	engine := policy.NewEngine(newLogger(cmd.ErrOrStderr(), cfg.Verbose))
	decision, err := engine.Decide(&platform, &desc, preferred, cfg.Server)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "resource:     %s %s %s\n", desc.Type, desc.Format, desc.Tiling)
	fmt.Fprintf(out, "pool:         %s\n", decision.Pool)
	fmt.Fprintf(out, "localOnly:    %t\n", decision.LocalOnly)
	fmt.Fprintf(out, "nonLocalOnly: %t\n", decision.NonLocalOnly)
	fmt.Fprintf(out, "compression:  %s\n", compressionDecision.Mode)
	return nil
}
