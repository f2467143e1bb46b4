package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dosctl/dosctl/catalog"
	"github.com/dosctl/dosctl/config"
	"github.com/dosctl/dosctl/ipx"
	"github.com/dosctl/dosctl/library"
	"github.com/dosctl/dosctl/util"
)

const (
	installedFlag     = "installed"
	caseSensitiveFlag = "case-sensitive"
	configureFlag     = "configure"
	floppyFlag        = "floppy"
	noExecFlag        = "no-exec"
	executablesFlag   = "executables"
	yesFlag           = "yes"
	forceFlag         = "force"
	portFlag          = "port"
	internetFlag      = "internet"
	publicIPFlag      = "public-ip"
	noUpnpFlag        = "no-upnp"

	envVarPrefix = "DOSCTL_"
)

var (
	logLevel string
	logFile  string

	rootCmd = &cobra.Command{
		Use:          "dosctl",
		Short:        "manage and play DOS games from the Total DOS Collection",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "sets dosctl log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "console", "sets dosctl log path. If console is specified the log will be output to stdout")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(netCmd)

	netCmd.AddCommand(netHostCmd, netJoinCmd)

	listCmd.Flags().BoolVarP(&listInstalled, installedFlag, "i", false, "only list installed games")
	searchCmd.Flags().BoolVarP(&searchCaseSensitive, caseSensitiveFlag, "c", false, "perform a case-sensitive search")
	runCmd.Flags().BoolVarP(&runConfigure, configureFlag, "c", false, "ignore the saved default executable so a new one can be given")
	runCmd.Flags().BoolVarP(&runFloppy, floppyFlag, "a", false, "also mount the game directory as A: and start there. Useful for floppy-based installers")
	runCmd.Flags().BoolVarP(&runNoExec, noExecFlag, "n", false, "open DOSBox with the game directory mounted but don't run anything. Useful for debugging")
	inspectCmd.Flags().BoolVarP(&inspectExecutables, executablesFlag, "e", false, "show only executable files (.exe, .com, .bat)")
	deleteCmd.Flags().BoolVar(&deleteYes, yesFlag, false, "delete without asking for confirmation")
	refreshCmd.Flags().BoolVar(&refreshForce, forceFlag, false, "force a re-download of the game list")

	netHostCmd.Flags().IntVarP(&hostPort, portFlag, "p", ipx.DefaultPort, "UDP port for the IPX server")
	netHostCmd.Flags().BoolVarP(&hostConfigure, configureFlag, "c", false, "ignore the saved default executable so a new one can be given")
	netHostCmd.Flags().BoolVarP(&hostInternet, internetFlag, "i", false, "enable internet play (UPnP port mapping + discovery code)")
	netHostCmd.Flags().StringVarP(&hostPublicIP, publicIPFlag, "I", "", "your public IP address (skips automatic detection)")
	netHostCmd.Flags().BoolVarP(&hostNoUpnp, noUpnpFlag, "U", false, "skip UPnP port mapping (use if the port is already forwarded)")
	netJoinCmd.Flags().IntVarP(&joinPort, portFlag, "p", ipx.DefaultPort, "UDP port of the IPX server")
	netJoinCmd.Flags().BoolVarP(&joinConfigure, configureFlag, "c", false, "ignore the saved default executable so a new one can be given")
}

// SetFlagsFromEnvVars reads and updates flag values from environment
// variables with the DOSCTL_ prefix.
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := FlagNameToEnvVar(f.Name, envVarPrefix)

		if value, present := os.LookupEnv(envVar); present {
			err := flags.Set(f.Name, value)
			if err != nil {
				log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envVar, err)
			}
		}
	})
}

// FlagNameToEnvVar converts a flag name to an environment var name adding
// a prefix, replacing dashes and making all uppercase (e.g. public-ip is
// converted to DOSCTL_PUBLIC_IP according to the input prefix).
func FlagNameToEnvVar(cmdFlag string, prefix string) string {
	parsed := strings.ReplaceAll(cmdFlag, "-", "_")
	upper := strings.ToUpper(parsed)
	return prefix + upper
}

// tool bundles what a game command needs: the resolved directory layout,
// the loaded settings, the catalog and the local library.
type tool struct {
	dirs     config.Dirs
	settings *config.Settings
	catalog  *catalog.Catalog
	library  *library.Library
}

// newTool prepares the directory layout and makes sure the catalog cache
// is present, downloading it on first use.
func newTool() (*tool, error) {
	dirs, err := config.DefaultDirs()
	if err != nil {
		return nil, fmt.Errorf("resolve dosctl directories: %w", err)
	}
	if err := dirs.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create dosctl directories: %w", err)
	}

	settings := config.LoadSettings(dirs)
	cat := catalog.New(settings.CollectionSource, dirs.Collections())
	if err := cat.Refresh(false); err != nil {
		return nil, err
	}

	return &tool{
		dirs:     dirs,
		settings: settings,
		catalog:  cat,
		library:  library.New(dirs, cat),
	}, nil
}

// initCommand is the shared RunE prologue: env var overrides, output
// wiring and logging.
func initCommand(cmd *cobra.Command) error {
	SetFlagsFromEnvVars(cmd)
	cmd.SetOut(cmd.OutOrStdout())

	if err := util.InitLog(logLevel, logFile); err != nil {
		log.Errorf("failed initializing log %v", err)
		return err
	}
	return nil
}
