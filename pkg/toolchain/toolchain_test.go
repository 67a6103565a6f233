package toolchain

import (
	"testing"

	"github.com/porter-dev/matrix-agent/api/server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		id      string
		kind    Kind
		channel string
		date    string
		rolling bool
		nightly bool
	}{
		{id: "nightly", kind: KindChannel, channel: "nightly", rolling: true, nightly: true},
		{id: "stable", kind: KindChannel, channel: "stable", rolling: true},
		{id: "nightly-2019-10-01", kind: KindChannel, channel: "nightly", date: "2019-10-01", rolling: true, nightly: true},
		{id: "1.28.0", kind: KindVersion},
		{id: "1.28", kind: KindVersion},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tc, err := Parse(tt.id)
			require.NoError(t, err)

			assert.Equal(t, tt.kind, tc.Kind)
			assert.Equal(t, tt.channel, tc.Channel)
			assert.Equal(t, tt.date, tc.Date)
			assert.Equal(t, tt.rolling, tc.IsRolling())
			assert.Equal(t, tt.nightly, tc.IsNightly())
			assert.Equal(t, tt.id, tc.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, id := range []string{"", "  ", "latest", "nightly-yesterday"} {
		_, err := Parse(id)
		assert.Error(t, err, id)
	}
}

func TestCommands(t *testing.T) {
	install := InstallCommands(mustParse(t, "1.28.0"))
	require.Len(t, install, 2)
	assert.Equal(t, []string{"rustup", "update", "1.28.0"}, install[0].Args)
	assert.Equal(t, []string{"rustup", "default", "1.28.0"}, install[1].Args)
	assert.Equal(t, types.FailureKindToolchainInstall, install[0].FailureKind)

	targets := TargetCommands([]string{"thumbv7m-none-eabi", "thumbv6m-none-eabi"})
	require.Len(t, targets, 2)
	assert.Equal(t, []string{"rustup", "target", "add", "thumbv6m-none-eabi"}, targets[1].Args)
	assert.Equal(t, types.FailureKindTargetRegistration, targets[1].FailureKind)

	components := ComponentCommands([]string{"rustfmt"})
	assert.Equal(t, []string{"rustup", "component", "add", "rustfmt"}, components[0].Args)

	pin := PinCommands("cfg-if", "0.1.9")
	require.Len(t, pin, 2)
	assert.Equal(t, []string{"cargo", "generate-lockfile"}, pin[0].Args)
	assert.Equal(t, []string{"cargo", "update", "-p", "cfg-if", "--precise", "0.1.9"}, pin[1].Args)
	assert.Equal(t, types.FailureKindDependencyPin, pin[1].FailureKind)
}

func mustParse(t *testing.T, id string) *Identifier {
	t.Helper()

	tc, err := Parse(id)
	require.NoError(t, err)

	return tc
}
