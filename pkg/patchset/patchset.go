package patchset

import (
	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/capability"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/classifier"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/spoof"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// Rule is one entry of the ordered rule table. AppliesIf must not have side
// effects; Actions appends to the builder and may fail on a missing lookup.
type Rule struct {
	Name      string
	AppliesIf func(*Context) bool
	Actions   func(*Context, *builder) error
}

// Resolver turns a hardware snapshot and a user configuration into a
// PatchPlan. It keeps no state between calls.
type Resolver struct {
	catalog    *catalog.Catalog
	capability *capability.Resolver
	classifier *classifier.Classifier
	spoof      *spoof.Resolver
	rules      []Rule
}

type Option func(*Resolver)

// WithSerialGenerator replaces the generator used by the advanced strategy.
func WithSerialGenerator(generator spoof.SerialGenerator) Option {
	return func(r *Resolver) {
		r.spoof = spoof.NewResolver(r.catalog, generator)
	}
}

func NewResolver(c *catalog.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    c,
		capability: capability.NewResolver(c),
		classifier: classifier.New(c),
		spoof:      spoof.NewResolver(c, nil),
		rules:      Rules(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the plan for the model in config.TargetModel, or for the
// probed model when no target is set. Any failed lookup aborts resolution
// and no plan is returned.
func (r *Resolver) Resolve(snapshot types.HardwareSnapshot, config types.UserConfig) (*types.PatchPlan, error) {
	model := config.TargetModel
	if model == "" {
		model = snapshot.RealModel
	}
	record, err := r.capability.Resolve(model)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Record:  record,
		Config:  config,
		catalog: r.catalog,
	}
	// Probed hardware only describes the target when building on the machine itself
	if snapshot.RealModel == model {
		if err := snapshot.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid hardware snapshot")
		}
		ctx.Snapshot = r.classifier.Enrich(snapshot)
		ctx.Live = true
	} else {
		ctx.Snapshot = types.HardwareSnapshot{RealModel: model}
	}
	ctx.TargetOS = targetOS(ctx)

	ctx.Spoof, err = r.spoof.ResolveSpoof(model, config.SerialStrategy)
	if err != nil {
		return nil, err
	}

	b := newBuilder(r.catalog)
	for _, rule := range r.rules {
		if !rule.AppliesIf(ctx) {
			continue
		}
		b.rule = rule.Name
		if err := rule.Actions(ctx, b); err != nil {
			return nil, errors.Wrapf(err, "rule %s", rule.Name)
		}
		if b.err != nil {
			return nil, errors.Wrapf(b.err, "rule %s", rule.Name)
		}
	}

	plan := &types.PatchPlan{
		TargetModel:     model,
		SpoofedModel:    ctx.Spoof.SpoofedModel,
		TargetOS:        ctx.TargetOS,
		Spoof:           ctx.Spoof,
		FirmwareActions: b.firmware,
		VolumeActions:   b.volume,
	}
	for _, a := range plan.VolumeActions {
		plan.CacheScope = plan.CacheScope.Wider(a.CacheScope())
	}
	plan.RequiresCacheRebuild = plan.CacheScope != types.CacheScopeNone
	return plan, nil
}

func targetOS(ctx *Context) int {
	if ctx.Config.TargetOS != 0 {
		return ctx.Config.TargetOS
	}
	if ctx.Live && ctx.Snapshot.HostOS != nil {
		return ctx.Snapshot.HostOS.Major
	}
	return constants.Ventura
}
