// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package storage_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/foxglove-studio-operator/internal/storage"
)

type directiveSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&directiveSuite{})

func (s *directiveSuite) TestParseDirective(c *gc.C) {
	tests := []struct {
		in  string
		out storage.Directive
		str string
	}{{
		in:  "",
		out: storage.Directive{Size: 1024, Count: 1},
		str: "1G,1",
	}, {
		in:  "10G",
		out: storage.Directive{Size: 10240, Count: 1},
		str: "10G,1",
	}, {
		in:  "512M",
		out: storage.Directive{Size: 512, Count: 1},
		str: "512M,1",
	}, {
		in:  "1.5G",
		out: storage.Directive{Size: 1536, Count: 1},
		str: "1536M,1",
	}, {
		in:  "kubernetes,2G",
		out: storage.Directive{Pool: "kubernetes", Size: 2048, Count: 1},
		str: "kubernetes,2G,1",
	}, {
		in:  "fast",
		out: storage.Directive{Pool: "fast", Size: 1024, Count: 1},
		str: "fast,1G,1",
	}, {
		in:  "1T,2",
		out: storage.Directive{Size: 1024 * 1024, Count: 2},
		str: "1T,2",
	}, {
		in:  "100",
		out: storage.Directive{Size: 100, Count: 1},
		str: "100M,1",
	}}
	for i, t := range tests {
		c.Logf("test %d: %q", i, t.in)
		d, err := storage.ParseDirective(t.in)
		c.Assert(err, jc.ErrorIsNil)
		c.Check(d, jc.DeepEquals, t.out)
		c.Check(d.String(), gc.Equals, t.str)
	}
}

func (s *directiveSuite) TestParseDirectiveErrors(c *gc.C) {
	tests := []struct {
		in  string
		err string
	}{{
		in:  "10G,",
		err: `empty field in storage directive "10G," not valid`,
	}, {
		in:  "10G,kubernetes",
		err: `storage directive "10G,kubernetes": pool must come first not valid`,
	}, {
		in:  "1G,2G",
		err: `storage directive "1G,2G" with size set twice not valid`,
	}, {
		in:  "1G,0",
		err: `storage directive "1G,0" with zero count not valid`,
	}, {
		in:  "1G,1,2",
		err: `storage directive "1G,1,2" with count set twice not valid`,
	}, {
		in:  "10 GB",
		err: `field "10 GB" in storage directive "10 GB" not valid`,
	}}
	for i, t := range tests {
		c.Logf("test %d: %q", i, t.in)
		_, err := storage.ParseDirective(t.in)
		c.Check(err, gc.ErrorMatches, t.err)
	}
}

func (s *directiveSuite) TestHumanSize(c *gc.C) {
	d, err := storage.ParseDirective("10G")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(d.SizeBytes(), gc.Equals, uint64(10*1024*1024*1024))
	c.Check(d.HumanSize(), gc.Equals, "10 GiB")
}

func (s *directiveSuite) TestParseDirectives(c *gc.C) {
	out, err := storage.ParseDirectives(map[string]string{
		"cache": "2G",
		"data":  "kubernetes,5G",
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, jc.DeepEquals, map[string]storage.Directive{
		"cache": {Size: 2048, Count: 1},
		"data":  {Pool: "kubernetes", Size: 5120, Count: 1},
	})

	out, err = storage.ParseDirectives(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.IsNil)

	_, err = storage.ParseDirectives(map[string]string{"data": "5G,"})
	c.Check(err, gc.ErrorMatches, `storage "data": empty field in storage directive "5G," not valid`)
}
