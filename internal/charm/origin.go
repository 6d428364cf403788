// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"fmt"

	"github.com/juju/errors"
)

// Origin selects which published charm artifact a deployment follows.
// The channel is always required to resolve the artifact stream; a
// revision, when set, pins one immutable artifact in that stream.
type Origin struct {
	Channel  Channel
	Revision *int
}

// MakeOrigin parses the channel and validates the optional revision.
func MakeOrigin(channel string, revision *int) (Origin, error) {
	if channel == "" {
		return Origin{}, errors.NotValidf("origin without channel")
	}
	ch, err := ParseChannelNormalize(channel)
	if err != nil {
		return Origin{}, errors.Trace(err)
	}
	if revision != nil && *revision < 0 {
		return Origin{}, errors.NotValidf("negative revision %d", *revision)
	}
	o := Origin{Channel: ch}
	if revision != nil {
		rev := *revision
		o.Revision = &rev
	}
	return o, nil
}

// ResolvedOrigin is an Origin after revision precedence has been applied.
type ResolvedOrigin struct {
	Channel Channel
	// Revision is only meaningful when Pinned is true.
	Revision int
	// Pinned reports that an explicit revision overrides channel tracking.
	Pinned bool
}

// Resolve applies revision precedence: an explicit revision wins over the
// floating head of the channel.
func (o Origin) Resolve() ResolvedOrigin {
	if o.Revision == nil {
		return ResolvedOrigin{Channel: o.Channel}
	}
	return ResolvedOrigin{
		Channel:  o.Channel,
		Revision: *o.Revision,
		Pinned:   true,
	}
}

func (r ResolvedOrigin) String() string {
	if !r.Pinned {
		return r.Channel.String()
	}
	return fmt.Sprintf("%s@%d", r.Channel, r.Revision)
}
