// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package storage

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
)

const (
	// DefaultSize is the volume size, in MiB, used when a directive does
	// not name one.
	DefaultSize = 1024

	mib = 1024 * 1024
)

var (
	poolNameRE = regexp.MustCompile(`^[a-zA-Z]+[-?a-zA-Z0-9]*$`)
	sizeRE     = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[MGTP]?$`)
	countRE    = regexp.MustCompile(`^[0-9]+$`)
)

// Directive describes the storage requested for a named store of an
// application.
type Directive struct {
	// Pool is the name of the storage pool (storage class) to provision
	// from. Empty means the runtime default.
	Pool string

	// Size is the size of each volume, in MiB.
	Size uint64

	// Count is the number of volumes.
	Count uint64
}

// String renders the directive in its canonical [pool,]size,count form.
func (d Directive) String() string {
	var parts []string
	if d.Pool != "" {
		parts = append(parts, d.Pool)
	}
	parts = append(parts, formatSize(d.Size), strconv.FormatUint(d.Count, 10))
	return strings.Join(parts, ",")
}

// SizeBytes returns the size of each volume in bytes.
func (d Directive) SizeBytes() uint64 {
	return d.Size * mib
}

// HumanSize returns the volume size in IEC units, e.g. "10 GiB".
func (d Directive) HumanSize() string {
	return humanize.IBytes(d.SizeBytes())
}

// ParseDirective parses a storage directive string of the form
// [pool,][size][,count]. Missing fields take their defaults: the
// runtime's default pool, DefaultSize and a count of one.
func ParseDirective(s string) (Directive, error) {
	d := Directive{Size: DefaultSize, Count: 1}
	if s == "" {
		return d, nil
	}

	var poolSet, sizeSet, countSet bool
	for _, field := range strings.Split(s, ",") {
		switch {
		case field == "":
			return Directive{}, errors.NotValidf("empty field in storage directive %q", s)
		case countRE.MatchString(field) && sizeSet:
			if countSet {
				return Directive{}, errors.NotValidf("storage directive %q with count set twice", s)
			}
			n, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return Directive{}, errors.Annotatef(err, "cannot parse count %q", field)
			}
			d.Count, countSet = n, true
		case sizeRE.MatchString(field):
			if sizeSet {
				return Directive{}, errors.NotValidf("storage directive %q with size set twice", s)
			}
			size, err := ParseSize(field)
			if err != nil {
				return Directive{}, errors.Trace(err)
			}
			d.Size, sizeSet = size, true
		case poolNameRE.MatchString(field):
			if poolSet || sizeSet {
				return Directive{}, errors.NotValidf("storage directive %q: pool must come first", s)
			}
			d.Pool, poolSet = field, true
		default:
			return Directive{}, errors.NotValidf("field %q in storage directive %q", field, s)
		}
	}
	if d.Count == 0 {
		return Directive{}, errors.NotValidf("storage directive %q with zero count", s)
	}
	return d, nil
}

// ParseSize parses a size with an optional M, G, T or P binary suffix and
// returns it in MiB. Unsuffixed values are MiB. Keep the suffixes in step with
// constraints.ParseSize.
func ParseSize(s string) (uint64, error) {
	if !sizeRE.MatchString(s) {
		return 0, errors.NotValidf("size %q", s)
	}
	unit := "MiB"
	if last := s[len(s)-1]; last < '0' || last > '9' {
		unit = string(last) + "iB"
		s = s[:len(s)-1]
	}
	bytes, err := humanize.ParseBytes(s + " " + unit)
	if err != nil {
		return 0, errors.Annotatef(err, "cannot parse size %q", s)
	}
	// Round partial MiB up.
	return (bytes + mib - 1) / mib, nil
}

func formatSize(size uint64) string {
	for _, unit := range []struct {
		suffix string
		mult   uint64
	}{{"P", 1 << 30}, {"T", 1 << 20}, {"G", 1 << 10}} {
		if size >= unit.mult && size%unit.mult == 0 {
			return fmt.Sprintf("%d%s", size/unit.mult, unit.suffix)
		}
	}
	return fmt.Sprintf("%dM", size)
}

// ParseDirectives parses a map of store name to directive string.
func ParseDirectives(in map[string]string) (map[string]Directive, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]Directive, len(in))
	for _, name := range sortedKeys(in) {
		d, err := ParseDirective(in[name])
		if err != nil {
			return nil, errors.Annotatef(err, "storage %q", name)
		}
		out[name] = d
	}
	return out, nil
}

func sortedKeys(in map[string]string) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
