// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

// Export meaningful bits for tests only.

var (
	ResourceSchema     = resourceSchema
	ParseResourceMeta  = parseResourceMeta
	MustReadDescriptor = mustReadDescriptor
)
