// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenv_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/foxglove-studio-operator/internal/hookenv"
)

type envSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&envSuite{})

func getenv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func (s *envSuite) TestReadEnvironment(c *gc.C) {
	env, err := hookenv.ReadEnvironment(getenv(map[string]string{
		"JUJU_UNIT_NAME":     "foxglove-studio/0",
		"JUJU_MODEL_NAME":    "robotics",
		"JUJU_MODEL_UUID":    "6e1c5d58-4e2f-4cb1-8b43-1e6b0a3c9f11",
		"JUJU_DISPATCH_PATH": "hooks/ingress-relation-joined",
		"JUJU_CHARM_DIR":     "/var/lib/juju/agents/unit-foxglove-studio-0/charm",
		"JUJU_RELATION":      "ingress",
		"JUJU_RELATION_ID":   "ingress:3",
		"JUJU_REMOTE_APP":    "traefik",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(env, jc.DeepEquals, hookenv.Environment{
		UnitName:        "foxglove-studio/0",
		ApplicationName: "foxglove-studio",
		ModelName:       "robotics",
		ModelUUID:       "6e1c5d58-4e2f-4cb1-8b43-1e6b0a3c9f11",
		HookName:        "ingress-relation-joined",
		CharmDir:        "/var/lib/juju/agents/unit-foxglove-studio-0/charm",
		RelationName:    "ingress",
		RelationID:      "ingress:3",
		RemoteApp:       "traefik",
	})
}

func (s *envSuite) TestReadEnvironmentHookName(c *gc.C) {
	env, err := hookenv.ReadEnvironment(getenv(map[string]string{
		"JUJU_UNIT_NAME": "foxglove-studio/1",
		"JUJU_HOOK_NAME": "config-changed",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(env.HookName, gc.Equals, "config-changed")
}

func (s *envSuite) TestReadEnvironmentErrors(c *gc.C) {
	for i, test := range []struct {
		vars map[string]string
		err  string
	}{{
		vars: map[string]string{"JUJU_HOOK_NAME": "install"},
		err:  "JUJU_UNIT_NAME not found",
	}, {
		vars: map[string]string{"JUJU_UNIT_NAME": "foxglove", "JUJU_HOOK_NAME": "install"},
		err:  `unit name "foxglove" not valid`,
	}, {
		vars: map[string]string{"JUJU_UNIT_NAME": "foxglove-studio/0"},
		err:  "hook name not found",
	}} {
		c.Logf("test %d", i)
		_, err := hookenv.ReadEnvironment(getenv(test.vars))
		c.Check(err, gc.ErrorMatches, test.err)
	}
}
