// Package toolchain classifies rustup toolchain identifiers and builds the
// commands used to prepare a toolchain before a job's scripts run.
package toolchain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

type Kind string

const (
	// KindChannel is a rolling channel such as stable or nightly
	KindChannel Kind = "channel"

	// KindVersion is a fixed numbered release such as 1.28.0
	KindVersion Kind = "version"
)

const (
	ChannelStable  = "stable"
	ChannelBeta    = "beta"
	ChannelNightly = "nightly"
)

var datedChannel = regexp.MustCompile(`^(stable|beta|nightly)-(\d{4}-\d{2}-\d{2})$`)

// Identifier is a parsed toolchain name.
type Identifier struct {
	raw string

	Kind    Kind
	Channel string
	Date    string
	Version *semver.Version
}

func Parse(id string) (*Identifier, error) {
	id = strings.TrimSpace(id)

	if id == "" {
		return nil, fmt.Errorf("empty toolchain identifier")
	}

	switch id {
	case ChannelStable, ChannelBeta, ChannelNightly:
		return &Identifier{raw: id, Kind: KindChannel, Channel: id}, nil
	}

	if m := datedChannel.FindStringSubmatch(id); m != nil {
		return &Identifier{raw: id, Kind: KindChannel, Channel: m[1], Date: m[2]}, nil
	}

	v, err := semver.StrictNewVersion(id)

	if err != nil {
		// rustup also accepts major.minor, e.g. 1.28
		v, err = semver.NewVersion(id)

		if err != nil {
			return nil, fmt.Errorf("toolchain %q is neither a channel nor a version: %w", id, err)
		}
	}

	return &Identifier{raw: id, Kind: KindVersion, Version: v}, nil
}

func (t *Identifier) String() string {
	return t.raw
}

// IsRolling is true for channels, which are continuously updated builds.
func (t *Identifier) IsRolling() bool {
	return t.Kind == KindChannel
}

func (t *Identifier) IsNightly() bool {
	return t.Kind == KindChannel && t.Channel == ChannelNightly
}
