// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
)

type originSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&originSuite{})

func intPtr(i int) *int {
	return &i
}

func (s *originSuite) TestRevisionTakesPrecedence(c *gc.C) {
	origin, err := charm.MakeOrigin("latest/edge", intPtr(5))
	c.Assert(err, jc.ErrorIsNil)

	resolved := origin.Resolve()
	c.Check(resolved.Pinned, jc.IsTrue)
	c.Check(resolved.Revision, gc.Equals, 5)
	c.Check(resolved.Channel.String(), gc.Equals, "latest/edge")
	c.Check(resolved.String(), gc.Equals, "latest/edge@5")
}

func (s *originSuite) TestChannelTracking(c *gc.C) {
	origin, err := charm.MakeOrigin("latest/edge", nil)
	c.Assert(err, jc.ErrorIsNil)

	resolved := origin.Resolve()
	c.Check(resolved.Pinned, jc.IsFalse)
	c.Check(resolved.String(), gc.Equals, "latest/edge")
}

func (s *originSuite) TestRevisionZeroIsPinned(c *gc.C) {
	origin, err := charm.MakeOrigin("edge", intPtr(0))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(origin.Resolve().Pinned, jc.IsTrue)
}

func (s *originSuite) TestRevisionIsCopied(c *gc.C) {
	rev := 7
	origin, err := charm.MakeOrigin("edge", &rev)
	c.Assert(err, jc.ErrorIsNil)
	rev = 8
	c.Check(origin.Resolve().Revision, gc.Equals, 7)
}

func (s *originSuite) TestNegativeRevision(c *gc.C) {
	_, err := charm.MakeOrigin("latest/edge", intPtr(-1))
	c.Assert(err, gc.ErrorMatches, "negative revision -1 not valid")
}

func (s *originSuite) TestMissingChannel(c *gc.C) {
	_, err := charm.MakeOrigin("", intPtr(3))
	c.Assert(err, gc.ErrorMatches, "origin without channel not valid")
}
