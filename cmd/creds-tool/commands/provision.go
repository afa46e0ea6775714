package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lucasdietrich/caniot-creds/pkg/log"
	"github.com/lucasdietrich/caniot-creds/pkg/persistence"
	"github.com/lucasdietrich/caniot-creds/pkg/provision"
	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
	"github.com/lucasdietrich/caniot-creds/pkg/source"
)

// ProvisionOptions configures RunProvision.
type ProvisionOptions struct {
	// Manifest is the credential manifest path.
	Manifest string

	// Erase wipes the region first.
	Erase bool

	// Verify reads every written slot back.
	Verify bool

	// DryRun provisions an in-memory copy of the region instead of the device.
	DryRun bool

	// StatePath records the report for later verification. Empty disables it.
	StatePath string

	// Dump writes a hexdump of the region after provisioning.
	Dump bool
}

// RunProvision loads a manifest and writes its credentials to the target.
func RunProvision(ctx context.Context, env *Env, opts ProvisionOptions, out io.Writer) error {
	manifest, err := source.LoadManifest(opts.Manifest)
	if err != nil {
		return err
	}
	batch, warnings, err := manifest.Resolve(source.ResolveOptions{})
	for _, w := range warnings {
		env.Logger.Warn("credential source", "name", w.Name, "warning", w.Message)
	}
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return errors.New("manifest lists no credentials")
	}

	prov := env.Prov
	if opts.DryRun {
		if prov, err = dryRunProvisioner(ctx, env, opts.Erase); err != nil {
			return err
		}
	}

	env.Logger.Info("provisioning", "credentials", len(batch), "target", env.Target.Name,
		"backend", env.Backend(), "erase", opts.Erase, "dry_run", opts.DryRun)

	report, err := prov.Provision(ctx, batch, provision.Options{Erase: opts.Erase, Verify: opts.Verify})
	if report != nil && len(report.Entries) > 0 {
		if ferr := formatEntries(out, report.Entries); ferr != nil {
			return ferr
		}
	}
	if report != nil && len(report.Mismatches) > 0 {
		formatMismatches(out, report.Mismatches)
	}

	if opts.StatePath != "" && !opts.DryRun && report != nil && (len(report.Entries) > 0 || report.Erased) {
		if serr := persistence.NewReportStore(opts.StatePath).Append(env.Store.Geometry(), report); serr != nil {
			env.Logger.Error("failed to save report", "path", opts.StatePath, "error", serr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d credentials written\n", len(report.Entries))
	if opts.Dump {
		raw, err := prov.Store().ReadRegion(ctx)
		if err != nil {
			return err
		}
		return writeHexdump(out, env.Store.Geometry().Offset, raw)
	}
	return nil
}

// dryRunProvisioner returns a provisioner over an in-memory copy of the
// target region.
func dryRunProvisioner(ctx context.Context, env *Env, erase bool) (*provision.Provisioner, error) {
	geom := env.Store.Geometry()
	mem := slotstore.NewMemoryTransport(int(env.Target.BankSize()))
	if !erase {
		raw, err := env.Store.ReadRegion(ctx)
		if err != nil {
			return nil, err
		}
		if err := mem.WriteRegion(ctx, geom.Offset, raw); err != nil {
			return nil, err
		}
	}
	store, err := slotstore.NewStore(geom, mem)
	if err != nil {
		return nil, err
	}
	return provision.New(provision.Config{
		Store:  store,
		Logger: log.NewSlogAdapter(env.Logger),
		Target: env.Target.Name + " (dry run)",
	})
}
