package spoof

import (
	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/capability"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

var ErrSerialGenerationFailed = errors.New("serial generation failed")

// SerialGenerator produces a synthetic identity for the spoofed model.
type SerialGenerator interface {
	Generate(model string) (types.SyntheticSerial, error)
}

type Resolver struct {
	catalog    *catalog.Catalog
	capability *capability.Resolver
	generator  SerialGenerator
}

// NewResolver returns a resolver backed by c. A nil generator uses
// NewGenerator(nil).
func NewResolver(c *catalog.Catalog, generator SerialGenerator) *Resolver {
	if generator == nil {
		generator = NewGenerator(nil)
	}
	return &Resolver{
		catalog:    c,
		capability: capability.NewResolver(c),
		generator:  generator,
	}
}

// MustSpoof reports whether the model needs a different identity to boot
// newer OS releases.
func (r *Resolver) MustSpoof(model string) bool {
	return r.catalog.InSet(catalog.SetMustSpoof, model)
}

// ResolveSpoof decides the identity reported to the OS. The result depends
// only on the model and the strategy, except for the serial values the
// advanced strategy asks the generator for.
func (r *Resolver) ResolveSpoof(realModel string, strategy types.SerialStrategy) (types.SpoofDecision, error) {
	record, err := r.capability.Resolve(realModel)
	if err != nil {
		return types.SpoofDecision{}, err
	}

	decision := types.SpoofDecision{
		RealModel:      realModel,
		SpoofedModel:   realModel,
		SpoofedBoardId: record.BoardId,
		SerialStrategy: strategy,
	}
	if strategy == types.SerialNone {
		return decision, nil
	}
	if !r.MustSpoof(realModel) {
		// Native models keep their identity, advanced still gets a fresh serial
		if strategy == types.SerialAdvanced {
			if err := r.generateSerial(&decision); err != nil {
				return types.SpoofDecision{}, err
			}
		}
		return decision, nil
	}

	donor, err := r.capability.ResolveFallbackSpoofTarget(realModel)
	if err != nil {
		return types.SpoofDecision{}, err
	}
	donorRecord, err := r.capability.Resolve(donor)
	if err != nil {
		return types.SpoofDecision{}, errors.Wrapf(err, "donor of %s", realModel)
	}

	switch strategy {
	case types.SerialMinimal:
		decision.SpoofedBoardId = donorRecord.BoardId
	case types.SerialModerate:
		decision.SpoofedModel = donor
		decision.SpoofedBoardId = donorRecord.BoardId
	case types.SerialAdvanced:
		decision.SpoofedModel = donor
		decision.SpoofedBoardId = donorRecord.BoardId
		if err := r.generateSerial(&decision); err != nil {
			return types.SpoofDecision{}, err
		}
	default:
		return types.SpoofDecision{}, errors.Errorf("unknown serial strategy %q", strategy)
	}
	return decision, nil
}

func (r *Resolver) generateSerial(decision *types.SpoofDecision) error {
	serial, err := r.generator.Generate(decision.SpoofedModel)
	if err != nil {
		return errors.Wrapf(ErrSerialGenerationFailed, "%s: %v", decision.SpoofedModel, err)
	}
	decision.Serial = &serial
	return nil
}
