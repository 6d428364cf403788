// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package constraints_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/foxglove-studio-operator/internal/constraints"
)

type constraintsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&constraintsSuite{})

var parseConstraintsTests = []struct {
	summary string
	args    []string
	err     string
	str     string
}{{
	summary: "nothing at all",
}, {
	summary: "architecture pinning",
	args:    []string{"arch=amd64"},
	str:     "arch=amd64",
}, {
	summary: "several in one argument",
	args:    []string{"  mem=4G   cores=2 arch=arm64 "},
	str:     "arch=arm64 cores=2 mem=4G",
}, {
	summary: "several arguments",
	args:    []string{"cpu-power=150", "root-disk=512M"},
	str:     "cpu-power=150 root-disk=512M",
}, {
	summary: "fractional sizes round up",
	args:    []string{"mem=0.5G"},
	str:     "mem=512M",
}, {
	summary: "unsuffixed sizes are MiB",
	args:    []string{"mem=2048"},
	str:     "mem=2G",
}, {
	summary: "tags",
	args:    []string{"tags=zone=a,disk=ssd"},
	str:     "tags=zone=a,disk=ssd",
}, {
	summary: "empty values are explicit",
	args:    []string{"arch= cores="},
	str:     "arch= cores=0",
}, {
	summary: "unknown constraint",
	args:    []string{"virt-type=kvm"},
	err:     `bad "virt-type" constraint: constraint "virt-type" not supported`,
}, {
	summary: "missing equals",
	args:    []string{"arch"},
	err:     `malformed constraint "arch"`,
}, {
	summary: "bad architecture",
	args:    []string{"arch=sparc"},
	err:     `bad "arch" constraint: architecture "sparc" not valid`,
}, {
	summary: "duplicate",
	args:    []string{"arch=amd64", "arch=arm64"},
	err:     `bad "arch" constraint: already set`,
}, {
	summary: "negative cores",
	args:    []string{"cores=-1"},
	err:     `bad "cores" constraint: must be a non-negative integer`,
}, {
	summary: "bad memory",
	args:    []string{"mem=lots"},
	err:     `bad "mem" constraint: must be a non-negative float with optional M/G/T/P suffix`,
}, {
	summary: "memory not a number",
	args:    []string{"mem=NaN"},
	err:     `bad "mem" constraint: must be a non-negative float with optional M/G/T/P suffix`,
}, {
	summary: "memory too large",
	args:    []string{"mem=1e30P"},
	err:     `bad "mem" constraint: size "1e30P" overflows`,
}, {
	summary: "infinite root disk",
	args:    []string{"root-disk=Inf"},
	err:     `bad "root-disk" constraint: must be a non-negative float with optional M/G/T/P suffix`,
}, {
	summary: "bad tag",
	args:    []string{"tags=ssd"},
	err:     `bad "tags" constraint: tag "ssd", expected key=value not valid`,
}}

func (s *constraintsSuite) TestParseConstraints(c *gc.C) {
	for i, t := range parseConstraintsTests {
		c.Logf("test %d: %s", i, t.summary)
		cons, err := constraints.Parse(t.args...)
		if t.err != "" {
			c.Check(err, gc.ErrorMatches, t.err)
			continue
		}
		c.Assert(err, jc.ErrorIsNil)
		c.Check(cons.String(), gc.Equals, t.str)

		// The string form parses back to the same value.
		again, err := constraints.Parse(cons.String())
		c.Assert(err, jc.ErrorIsNil)
		c.Check(again, jc.DeepEquals, cons)
	}
}

func (s *constraintsSuite) TestIsEmpty(c *gc.C) {
	c.Check(constraints.Value{}.IsEmpty(), jc.IsTrue)
	c.Check(constraints.MustParse("arch=amd64").IsEmpty(), jc.IsFalse)
}

func (s *constraintsSuite) TestMustParsePanics(c *gc.C) {
	c.Check(func() { constraints.MustParse("bogus") }, gc.PanicMatches, `malformed constraint "bogus"`)
}

func (s *constraintsSuite) TestParseSize(c *gc.C) {
	for _, t := range []struct {
		in  string
		out uint64
	}{
		{"1", 1},
		{"1M", 1},
		{"1.5G", 1536},
		{"1T", 1024 * 1024},
		{"1P", 1024 * 1024 * 1024},
	} {
		size, err := constraints.ParseSize(t.in)
		c.Check(err, jc.ErrorIsNil)
		c.Check(size, gc.Equals, t.out, gc.Commentf("%q", t.in))
	}
	_, err := constraints.ParseSize("")
	c.Check(err, gc.ErrorMatches, "empty size")
}
