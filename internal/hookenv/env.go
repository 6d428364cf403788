// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookenv bridges the charm to the Juju unit agent: it reads the
// hook environment and runs hook tools.
package hookenv

import (
	"path"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
)

// Environment variables set by the unit agent for every hook.
const (
	EnvUnitName     = "JUJU_UNIT_NAME"
	EnvModelName    = "JUJU_MODEL_NAME"
	EnvModelUUID    = "JUJU_MODEL_UUID"
	EnvDispatchPath = "JUJU_DISPATCH_PATH"
	EnvHookName     = "JUJU_HOOK_NAME"
	EnvCharmDir     = "JUJU_CHARM_DIR"
	EnvRelation     = "JUJU_RELATION"
	EnvRelationID   = "JUJU_RELATION_ID"
	EnvRemoteApp    = "JUJU_REMOTE_APP"
	EnvRemoteUnit   = "JUJU_REMOTE_UNIT"
	EnvWorkloadName = "JUJU_WORKLOAD_NAME"
)

// Environment describes the hook being run.
type Environment struct {
	UnitName        string
	ApplicationName string
	ModelName       string
	ModelUUID       string
	HookName        string
	CharmDir        string

	// Relation fields are set for relation hooks only.
	RelationName string
	RelationID   string
	RemoteApp    string
	RemoteUnit   string

	// WorkloadName is set for workload (pebble) hooks only.
	WorkloadName string
}

// ReadEnvironment reads the hook environment using getenv, typically
// os.Getenv. The hook name comes from the dispatch path when set.
func ReadEnvironment(getenv func(string) string) (Environment, error) {
	env := Environment{
		UnitName:     getenv(EnvUnitName),
		ModelName:    getenv(EnvModelName),
		ModelUUID:    getenv(EnvModelUUID),
		HookName:     getenv(EnvHookName),
		CharmDir:     getenv(EnvCharmDir),
		RelationName: getenv(EnvRelation),
		RelationID:   getenv(EnvRelationID),
		RemoteApp:    getenv(EnvRemoteApp),
		RemoteUnit:   getenv(EnvRemoteUnit),
		WorkloadName: getenv(EnvWorkloadName),
	}
	if dispatch := getenv(EnvDispatchPath); dispatch != "" {
		env.HookName = path.Base(dispatch)
	}
	if env.UnitName == "" {
		return Environment{}, errors.NotFoundf("%s", EnvUnitName)
	}
	if !names.IsValidUnit(env.UnitName) {
		return Environment{}, errors.NotValidf("unit name %q", env.UnitName)
	}
	appName, err := names.UnitApplication(env.UnitName)
	if err != nil {
		return Environment{}, errors.Trace(err)
	}
	env.ApplicationName = appName
	if env.HookName == "" {
		return Environment{}, errors.NotFoundf("hook name")
	}
	return env, nil
}
