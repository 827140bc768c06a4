package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	gyroBinary   = "dist/gyro"
	gyroSource   = "./cmd/gyro"
	builderImage = "gophertribe/gobuild:1.25-bookworm"
)

type platform struct {
	OS   string
	Arch string
}

func (p platform) String() string {
	return p.OS + "/" + p.Arch
}

// boards the gyro cli ships to; the periph and gobot transports need linux i2c-dev
var boards = map[string]platform{
	"nanopi": {OS: "linux", Arch: "arm"},
	"rpi":    {OS: "linux", Arch: "arm64"},
	"host":   {OS: runtime.GOOS, Arch: runtime.GOARCH},
}

func boardNames() string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// buildTarget says where the build runs (host) and what it produces (target).
type buildTarget struct {
	host    platform
	target  platform
	version string
	noCache bool
}

func parseBuildTarget(cmd *cobra.Command) (buildTarget, error) {
	flags := cmd.Flags()
	t := buildTarget{}
	var err error
	if t.host.OS, err = flags.GetString("os"); err != nil {
		return t, fmt.Errorf("could not get os flag: %w", err)
	}
	if t.host.Arch, err = flags.GetString("arch"); err != nil {
		return t, fmt.Errorf("could not get arch flag: %w", err)
	}
	if t.version, err = flags.GetString("version"); err != nil {
		return t, fmt.Errorf("could not get version flag: %w", err)
	}
	if t.noCache, err = flags.GetBool("no-cache"); err != nil {
		return t, fmt.Errorf("could not get no-cache flag: %w", err)
	}
	t.target = t.host
	board, err := flags.GetString("board")
	if err != nil {
		return t, fmt.Errorf("could not get board flag: %w", err)
	}
	if board != "" {
		p, ok := boards[board]
		if !ok {
			return t, fmt.Errorf("unknown board %q (known: %s)", board, boardNames())
		}
		t.target = p
	}
	crossOS, _ := flags.GetString("cross-os")
	crossArch, _ := flags.GetString("cross-arch")
	if crossOS != "" && crossArch != "" {
		t.target = platform{OS: crossOS, Arch: crossArch}
	}
	return t, nil
}

// native reports whether go can run directly on this machine; otherwise the build
// is repeated inside the builder container for the requested host platform.
func (t buildTarget) native() bool {
	return t.host.OS == runtime.GOOS && t.host.Arch == runtime.GOARCH
}

func (t buildTarget) goBuildOpts() build.GoBuildOpts {
	return build.GoBuildOpts{
		Version:       t.version,
		InjectVersion: true,
		ConfigPackage: "main",
		// periph host drivers are pure go, the hid bridge on the host needs cgo
		EnableCgo: t.target == boards["host"],
		OS:        t.target.OS,
		Arch:      t.target.Arch,
	}
}

// containerArgs repeats the build inside the container, always with an explicit target.
func (t buildTarget) containerArgs() []string {
	return []string{"build", "--version", t.version, "--cross-os", t.target.OS, "--cross-arch", t.target.Arch}
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the gyro cli",
		Long:  "Builds the gyro cli for the host or cross-compiles it for one of the supported boards (" + boardNames() + ")",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseBuildTarget(cmd)
			if err != nil {
				return err
			}
			if t.native() {
				slog.Info("building gyro", "target", t.target, "version", t.version)
				return build.GoBuild(gyroBinary, gyroSource, t.goBuildOpts())
			}
			slog.Info("building gyro in container", "host", t.host, "target", t.target)
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", t.host.OS, t.host.Arch), t.containerArgs(), build.DockerBuildOpts{
				NoCache: t.noCache,
				Image:   builderImage,
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building in a container")
	cmd.Flags().String("version", "latest", "version stamped into the binary")
	cmd.Flags().String("os", runtime.GOOS, "os the build runs on")
	cmd.Flags().String("arch", runtime.GOARCH, "arch the build runs on")
	cmd.Flags().String("board", "", "board preset to cross-compile for ("+boardNames()+")")
	cmd.Flags().String("cross-os", "", "os to cross-compile for, overrides --board")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for, overrides --board")

	return cmd
}
