// Package molgraph turns SMILES strings into featurized molecule graphs.
//
// Featurization is split into three stateless components built from one
// immutable FeaturizerConfig:
//
//   - AtomFeaturizer: one fixed-width row per atom.
//   - BondFeaturizer: one fixed-width row per bond.
//   - Builder: parses the SMILES through a molecule.ChemistryQuery and
//     assembles node rows, the directed edge index and the edge rows.
//
// All three are safe for concurrent use.  Two builders with different
// configurations can run side by side; nothing is stored in package state.
package molgraph

import (
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// ---------------------------------------------------------------------------
// FeaturizerConfig
// ---------------------------------------------------------------------------

// FeaturizerConfig selects the feature layout and the batch limits.
type FeaturizerConfig struct {
	// UseChirality appends the chiral-tag one-hot to every node row.
	UseChirality bool `mapstructure:"use_chirality" yaml:"use_chirality" json:"use_chirality"`

	// HydrogensImplicit appends the total-H one-hot to every node row.  When
	// false, "H" is prepended to the permitted symbols instead.
	HydrogensImplicit bool `mapstructure:"hydrogens_implicit" yaml:"hydrogens_implicit" json:"hydrogens_implicit"`

	// UseStereochemistry appends the double-bond stereo one-hot to every
	// edge row.
	UseStereochemistry bool `mapstructure:"use_stereochemistry" yaml:"use_stereochemistry" json:"use_stereochemistry"`

	// BondTypeOverflow appends an OTHER bucket to the bond-type one-hot and
	// adds the +bondother marker to the schema version.
	BondTypeOverflow bool `mapstructure:"bond_type_overflow" yaml:"bond_type_overflow" json:"bond_type_overflow"`

	// MaxAtoms rejects molecules with more atoms.  Zero disables the limit.
	MaxAtoms int `mapstructure:"max_atoms" yaml:"max_atoms" json:"max_atoms"`

	// Workers bounds BuildBatch concurrency.  Zero uses one per CPU.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// DefaultFeaturizerConfig returns the configuration pretrained consumers
// expect: chirality, implicit hydrogens and stereochemistry on, no bond-type
// overflow bucket.
func DefaultFeaturizerConfig() FeaturizerConfig {
	return FeaturizerConfig{
		UseChirality:       true,
		HydrogensImplicit:  true,
		UseStereochemistry: true,
	}
}

// Validate checks the configuration for consistency.
func (c FeaturizerConfig) Validate() error {
	if c.MaxAtoms < 0 {
		return errors.New(errors.ErrCodeFeatureConfigInvalid, "max_atoms must not be negative")
	}
	if c.Workers < 0 {
		return errors.New(errors.ErrCodeFeatureConfigInvalid, "workers must not be negative")
	}
	return nil
}

// SchemaVersion names the node and edge layout selected by the
// configuration. The default layout is plain "v1"; every flag that changes a
// row width or a category list adds a marker, so two configurations share a
// version only when their graphs are interchangeable.
func (c FeaturizerConfig) SchemaVersion() string {
	v := moltypes.SchemaVersionV1
	if !c.UseChirality {
		v += moltypes.SchemaMarkerNoChirality
	}
	if !c.HydrogensImplicit {
		v += moltypes.SchemaMarkerNoHydrogens
	}
	if !c.UseStereochemistry {
		v += moltypes.SchemaMarkerNoStereo
	}
	if c.BondTypeOverflow {
		v += moltypes.SchemaMarkerBondOther
	}
	return v
}
