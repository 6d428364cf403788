// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package constraints

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// The following constants contain the names of the supported constraints.
const (
	Arch     = "arch"
	Cores    = "cores"
	CpuPower = "cpu-power"
	Mem      = "mem"
	RootDisk = "root-disk"
	Tags     = "tags"
)

// Architectures accepted for the arch constraint.
var Architectures = set.NewStrings("amd64", "arm64", "ppc64el", "s390x", "riscv64")

// Value describes a user's requirements of the hardware on which units
// of an application will run. A nil field means the constraint is unset.
type Value struct {
	// Arch, if not nil, indicates that a unit must run on a node with the
	// specified architecture.
	Arch *string `json:"arch,omitempty" yaml:"arch,omitempty"`

	// Cores, if not nil, indicates the number of CPU cores a unit may use.
	Cores *uint64 `json:"cores,omitempty" yaml:"cores,omitempty"`

	// CpuPower, if not nil, indicates the CPU power a unit may use, where
	// 100 is one core.
	CpuPower *uint64 `json:"cpu-power,omitempty" yaml:"cpu-power,omitempty"`

	// Mem, if not nil, indicates the memory a unit may use, in MiB.
	Mem *uint64 `json:"mem,omitempty" yaml:"mem,omitempty"`

	// RootDisk, if not nil, indicates the root disk size in MiB.
	RootDisk *uint64 `json:"root-disk,omitempty" yaml:"root-disk,omitempty"`

	// Tags, if not nil, holds key=value node labels a unit must be
	// scheduled on.
	Tags *[]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// IsEmpty returns whether no constraint is set.
func (v Value) IsEmpty() bool {
	return v.Arch == nil &&
		v.Cores == nil &&
		v.CpuPower == nil &&
		v.Mem == nil &&
		v.RootDisk == nil &&
		v.Tags == nil
}

// String expresses a constraints.Value in the language in which it was
// specified.
func (v Value) String() string {
	var strs []string
	if v.Arch != nil {
		strs = append(strs, "arch="+*v.Arch)
	}
	if v.Cores != nil {
		strs = append(strs, "cores="+uintStr(*v.Cores))
	}
	if v.CpuPower != nil {
		strs = append(strs, "cpu-power="+uintStr(*v.CpuPower))
	}
	if v.Mem != nil {
		strs = append(strs, "mem="+sizeStr(*v.Mem))
	}
	if v.RootDisk != nil {
		strs = append(strs, "root-disk="+sizeStr(*v.RootDisk))
	}
	if v.Tags != nil {
		strs = append(strs, "tags="+strings.Join(*v.Tags, ","))
	}
	return strings.Join(strs, " ")
}

// MustParse constructs a constraints.Value from the supplied arguments,
// and panics on failure.
func MustParse(args ...string) Value {
	v, err := Parse(args...)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse constructs a constraints.Value from the supplied arguments,
// each of which must contain only spaces and name=value pairs.
func Parse(args ...string) (Value, error) {
	var cons Value
	seen := set.NewStrings()
	for _, arg := range args {
		for _, field := range strings.Fields(arg) {
			name, str, ok := strings.Cut(field, "=")
			if !ok {
				return Value{}, errors.Errorf("malformed constraint %q", field)
			}
			if seen.Contains(name) {
				return Value{}, errors.Errorf("bad %q constraint: already set", name)
			}
			seen.Add(name)
			if err := cons.set(name, str); err != nil {
				return Value{}, errors.Annotatef(err, "bad %q constraint", name)
			}
		}
	}
	return cons, nil
}

func (v *Value) set(name, str string) error {
	switch name {
	case Arch:
		return v.setArch(str)
	case Cores:
		return setUint(&v.Cores, str)
	case CpuPower:
		return setUint(&v.CpuPower, str)
	case Mem:
		return setSize(&v.Mem, str)
	case RootDisk:
		return setSize(&v.RootDisk, str)
	case Tags:
		return v.setTags(str)
	}
	return errors.NotSupportedf("constraint %q", name)
}

func (v *Value) setArch(str string) error {
	if str != "" && !Architectures.Contains(str) {
		return errors.NotValidf("architecture %q", str)
	}
	v.Arch = &str
	return nil
}

func (v *Value) setTags(str string) error {
	var tags []string
	if str != "" {
		tags = strings.Split(str, ",")
	}
	for _, tag := range tags {
		if key, _, ok := strings.Cut(tag, "="); !ok || key == "" {
			return errors.NotValidf("tag %q, expected key=value", tag)
		}
	}
	v.Tags = &tags
	return nil
}

func setUint(field **uint64, str string) error {
	var value uint64
	if str != "" {
		var err error
		if value, err = strconv.ParseUint(str, 10, 64); err != nil {
			return errors.Errorf("must be a non-negative integer")
		}
	}
	*field = &value
	return nil
}

func setSize(field **uint64, str string) error {
	var value uint64
	if str != "" {
		var err error
		if value, err = ParseSize(str); err != nil {
			return errors.Trace(err)
		}
	}
	*field = &value
	return nil
}

var mbSuffixes = map[string]float64{
	"M": 1,
	"G": 1024,
	"T": 1024 * 1024,
	"P": 1024 * 1024 * 1024,
}

// ParseSize parses the string as a size, in mebibytes. The string must
// be a non-negative number with an optional M, G, T or P suffix. Storage
// directives share this grammar, see storage.ParseDirective.
func ParseSize(str string) (uint64, error) {
	if str == "" {
		return 0, errors.Errorf("empty size")
	}
	mult := 1.0
	num := str
	if m, ok := mbSuffixes[str[len(str)-1:]]; ok {
		num = str[:len(str)-1]
		mult = m
	}
	val, err := strconv.ParseFloat(num, 64)
	if err != nil || val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, errors.Errorf("must be a non-negative float with optional M/G/T/P suffix")
	}
	size := math.Ceil(val * mult)
	if size >= math.MaxUint64 {
		return 0, errors.Errorf("size %q overflows", str)
	}
	return uint64(size), nil
}

func uintStr(i uint64) string {
	return fmt.Sprintf("%d", i)
}

func sizeStr(mb uint64) string {
	for _, suffix := range []string{"P", "T", "G"} {
		mult := uint64(mbSuffixes[suffix])
		if mb >= mult && mb%mult == 0 {
			return fmt.Sprintf("%d%s", mb/mult, suffix)
		}
	}
	return fmt.Sprintf("%dM", mb)
}
