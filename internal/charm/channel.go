// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// Risk is the stability level a channel publishes at.
type Risk string

const (
	Stable    Risk = "stable"
	Candidate Risk = "candidate"
	Beta      Risk = "beta"
	Edge      Risk = "edge"
)

// DefaultTrack is the track used when a channel only names a risk.
const DefaultTrack = "latest"

var risks = set.NewStrings(string(Stable), string(Candidate), string(Beta), string(Edge))

// Channel is the stream of charm revisions an application follows,
// written as <track>/<risk>/<branch>. Only the risk is mandatory; a lone
// track follows its stable risk.
type Channel struct {
	Track  string `json:"track,omitempty" yaml:"track,omitempty"`
	Risk   Risk   `json:"risk,omitempty" yaml:"risk,omitempty"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// ParseChannel parses a channel without filling in defaults.
func ParseChannel(s string) (Channel, error) {
	if s == "" {
		return Channel{}, errors.NotValidf("empty channel")
	}
	var ch Channel
	parts := strings.Split(s, "/")
	switch {
	case len(parts) > 3:
		return Channel{}, errors.Errorf("channel is malformed and has too many components %q", s)
	case len(parts) == 3:
		ch = Channel{Track: parts[0], Risk: Risk(parts[1]), Branch: parts[2]}
	case risks.Contains(parts[0]):
		ch.Risk = Risk(parts[0])
		if len(parts) == 2 {
			ch.Branch = parts[1]
			if ch.Branch == "" {
				return Channel{}, errors.NotValidf("branch in channel %q", s)
			}
		}
		return ch, nil
	case len(parts) == 2:
		ch = Channel{Track: parts[0], Risk: Risk(parts[1])}
	default:
		return Channel{Track: parts[0]}, nil
	}

	if !risks.Contains(string(ch.Risk)) {
		return Channel{}, errors.NotValidf("risk in channel %q", s)
	}
	if ch.Track == "" {
		return Channel{}, errors.NotValidf("track in channel %q", s)
	}
	if len(parts) == 3 && ch.Branch == "" {
		return Channel{}, errors.NotValidf("branch in channel %q", s)
	}
	return ch, nil
}

// ParseChannelNormalize parses a channel and fills in the default track
// and risk.
func ParseChannelNormalize(s string) (Channel, error) {
	ch, err := ParseChannel(s)
	if err != nil {
		return Channel{}, errors.Trace(err)
	}
	return ch.Normalize(), nil
}

// Normalize returns the channel with an explicit track and risk.
func (ch Channel) Normalize() Channel {
	if ch.Track == "" {
		ch.Track = DefaultTrack
	}
	if ch.Risk == "" {
		ch.Risk = Stable
	}
	return ch
}

// String renders the channel, omitting the parts that are not set.
func (ch Channel) String() string {
	parts := make([]string, 0, 3)
	if ch.Track != "" {
		parts = append(parts, ch.Track)
	}
	if ch.Risk != "" {
		parts = append(parts, string(ch.Risk))
	}
	if ch.Branch != "" {
		parts = append(parts, ch.Branch)
	}
	return strings.Join(parts, "/")
}
