package toolchain

import (
	"github.com/porter-dev/matrix-agent/api/server/types"
)

// Command is a single process invocation. FailureKind says how a non-zero
// exit of this command is classified.
type Command struct {
	Args        []string
	FailureKind types.FailureKind
}

func InstallCommands(t *Identifier) []Command {
	return []Command{
		{Args: []string{"rustup", "update", t.String()}, FailureKind: types.FailureKindToolchainInstall},
		{Args: []string{"rustup", "default", t.String()}, FailureKind: types.FailureKindToolchainInstall},
	}
}

func TargetCommands(targets []string) []Command {
	res := make([]Command, 0, len(targets))

	for _, target := range targets {
		res = append(res, Command{
			Args:        []string{"rustup", "target", "add", target},
			FailureKind: types.FailureKindTargetRegistration,
		})
	}

	return res
}

func ComponentCommands(components []string) []Command {
	res := make([]Command, 0, len(components))

	for _, component := range components {
		res = append(res, Command{
			Args:        []string{"rustup", "component", "add", component},
			FailureKind: types.FailureKindTargetRegistration,
		})
	}

	return res
}

// PinCommands generates a lockfile and then downgrades pkg to exactly version.
func PinCommands(pkg, version string) []Command {
	return []Command{
		{Args: []string{"cargo", "generate-lockfile"}, FailureKind: types.FailureKindDependencyPin},
		{Args: []string{"cargo", "update", "-p", pkg, "--precise", version}, FailureKind: types.FailureKindDependencyPin},
	}
}
